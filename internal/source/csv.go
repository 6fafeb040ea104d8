package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/ffmm-chile/ffmm/internal/dataset"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cellParser recognizes one textual representation of a column type.
type cellParser struct {
	typ   ffmm.ColumnType
	parse func(string) (any, bool)
}

// Ordered from most to least specific. A column takes the first parser
// that accepts every non-empty cell; otherwise it stays text.
var cellParsers = []cellParser{
	{ffmm.ColumnInteger, parseInt},
	{ffmm.ColumnFloat, parseFloat},
	{ffmm.ColumnBoolean, parseBool},
	{ffmm.ColumnDate, layoutParser("2006-01-02")},
	{ffmm.ColumnDate, layoutParser("02-01-2006")},
	{ffmm.ColumnDate, layoutParser("02/01/2006")},
	{ffmm.ColumnTimestamp, layoutParser("2006-01-02 15:04:05")},
	{ffmm.ColumnTimestamp, layoutParser("2006-01-02T15:04:05")},
	{ffmm.ColumnTimestamp, layoutParser(time.RFC3339)},
}

// readCSV decodes a delimited file with a header row.
func readCSV(ctx context.Context, f File) (*dataset.Dataset, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		// CMF exports are often Latin-1.
		data, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode csv as latin-1: %w", err)
		}
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row: %w", ffmm.ErrSchemaNormalization)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	header, body := records[0], records[1:]
	columns := make([]ffmm.Column, len(header))
	parsers := make([]*cellParser, len(header))
	for j, name := range header {
		parsers[j] = inferColumn(body, j)
		typ := ffmm.ColumnText
		if parsers[j] != nil {
			typ = parsers[j].typ
		}
		columns[j] = ffmm.Column{Name: name, Source: name, Type: typ}
	}

	rows := make([][]any, len(body))
	for i, rec := range body {
		row := make([]any, len(header))
		for j := range header {
			if j >= len(rec) {
				continue
			}
			cell := strings.TrimSpace(rec[j])
			switch {
			case cell == "":
				row[j] = nil
			case parsers[j] == nil:
				row[j] = rec[j]
			default:
				row[j], _ = parsers[j].parse(cell)
			}
		}
		rows[i] = row
	}

	return dataset.New(columns, rows)
}

// sniffDelimiter picks ';' or ',' by counting both in the header line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func inferColumn(body [][]string, j int) *cellParser {
	seen := false
	for p := range cellParsers {
		ok := true
		for _, rec := range body {
			if j >= len(rec) {
				continue
			}
			cell := strings.TrimSpace(rec[j])
			if cell == "" {
				continue
			}
			seen = true
			if _, good := cellParsers[p].parse(cell); !good {
				ok = false
				break
			}
		}
		if !seen {
			return nil
		}
		if ok {
			return &cellParsers[p]
		}
	}
	return nil
}

func parseInt(s string) (any, bool) {
	if !plainNumber(s) {
		return nil, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

func parseFloat(s string) (any, bool) {
	if !plainNumber(s) {
		return nil, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// plainNumber reports whether s is written as a plain decimal number.
// Zero-padded codes such as RUN "0089" and explicitly signed "+1" are not.
func plainNumber(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" || digits[0] == '+' {
		return false
	}
	if len(digits) > 1 && digits[0] == '0' && digits[1] >= '0' && digits[1] <= '9' {
		return false
	}
	for _, r := range digits {
		switch {
		case r >= '0' && r <= '9', r == '.', r == 'e', r == 'E', r == '-', r == '+':
		default:
			return false
		}
	}
	return true
}

func parseBool(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "true", "t":
		return true, true
	case "false", "f":
		return false, true
	}
	return nil, false
}

func layoutParser(layout string) func(string) (any, bool) {
	return func(s string) (any, bool) {
		t, err := time.Parse(layout, s)
		return t, err == nil
	}
}
