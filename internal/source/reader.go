package source

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/ffmm-chile/ffmm/internal/checksum"
	"github.com/ffmm-chile/ffmm/internal/dataset"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// Format identifies how a source is decoded.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// FormatOf returns the format implied by uri's extension.
func FormatOf(uri string) (Format, error) {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%s: %w", uri, ffmm.ErrUnsupportedSourceFormat)
}

// Reader reads complete datasets from local or object-store sources.
type Reader struct {
	opener *Opener
}

// NewReader creates a Reader over opener.
func NewReader(opener *Opener) *Reader {
	if opener == nil {
		panic("opener cannot be nil")
	}
	return &Reader{opener: opener}
}

// Read opens uri and decodes it in full. Column names are left as found in
// the source. The returned dataset carries the SHA-256 of the file bytes.
func (r *Reader) Read(ctx context.Context, uri string) (*dataset.Dataset, error) {
	format, err := FormatOf(uri)
	if err != nil {
		return nil, err
	}

	f, err := r.opener.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sum, err := checksum.Of(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}

	var ds *dataset.Dataset
	switch format {
	case FormatParquet:
		ds, err = readParquet(ctx, f)
	case FormatCSV:
		ds, err = readCSV(ctx, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	return ds.WithChecksum(sum), nil
}
