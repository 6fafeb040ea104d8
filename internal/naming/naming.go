package naming

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const separator = '_'

// Normalizer normalizes column labels. The zero value is not usable; use New.
type Normalizer struct {
	maxLen int
}

// New returns a Normalizer that caps identifiers at ffmm.MaxIdentifierLength bytes.
func New() *Normalizer {
	return &Normalizer{maxLen: ffmm.MaxIdentifierLength}
}

// Column normalizes a single label without any collision handling.
// The result is empty when the label carries no ASCII letters or digits.
func (n *Normalizer) Column(raw string) string {
	ascii := stripDiacritics(raw)

	var b strings.Builder
	pendingSep := false
	for _, r := range ascii {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteRune(separator)
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}

	name := b.String()
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "c_" + name
	}
	return truncate(name, n.maxLen)
}

// Normalize normalizes a full header. The i-th result corresponds to the i-th
// label. It fails with ffmm.ErrSchemaNormalization when a label normalizes to
// the empty string or no free suffix exists.
func (n *Normalizer) Normalize(raw []string) ([]string, error) {
	out := make([]string, len(raw))
	taken := make(map[string]struct{}, len(raw))

	for i, label := range raw {
		base := n.Column(label)
		if base == "" {
			return nil, fmt.Errorf("column %d %q has no usable characters: %w", i+1, label, ffmm.ErrSchemaNormalization)
		}

		name := base
		if _, dup := taken[name]; dup {
			var err error
			name, err = n.disambiguate(base, taken, len(raw))
			if err != nil {
				return nil, fmt.Errorf("column %d %q: %w", i+1, label, err)
			}
		}
		taken[name] = struct{}{}
		out[i] = name
	}
	return out, nil
}

// disambiguate finds the lowest free suffix for base. With n labels there is
// always a free suffix among the first n, so the loop bound only guards
// against truncation making every candidate collide.
func (n *Normalizer) disambiguate(base string, taken map[string]struct{}, labels int) (string, error) {
	for k := 1; k <= labels; k++ {
		suffix := string(separator) + strconv.Itoa(k)
		candidate := truncate(base, n.maxLen-len(suffix)) + suffix
		if _, dup := taken[candidate]; !dup {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free suffix for %q: %w", base, ffmm.ErrSchemaNormalization)
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// truncate cuts to max bytes; normalized names are pure ASCII so bytes are runes.
func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return strings.TrimRight(s[:max], string(separator))
	}
	return s
}
