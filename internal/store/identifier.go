package store

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// tableName is a possibly schema-qualified table reference.
type tableName struct {
	schema string
	name   string
}

func parseTableName(s string) (tableName, error) {
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return tableName{}, fmt.Errorf("invalid table name %q: %w", s, ffmm.ErrInvalidConfig)
		}
	}
	switch len(parts) {
	case 1:
		return tableName{name: parts[0]}, nil
	case 2:
		return tableName{schema: parts[0], name: parts[1]}, nil
	}
	return tableName{}, fmt.Errorf("invalid table name %q: %w", s, ffmm.ErrInvalidConfig)
}

func (t tableName) identifier() pgx.Identifier {
	if t.schema == "" {
		return pgx.Identifier{t.name}
	}
	return pgx.Identifier{t.schema, t.name}
}

// Sanitize returns the quoted, qualified reference for use in SQL text.
func (t tableName) Sanitize() string {
	return t.identifier().Sanitize()
}
