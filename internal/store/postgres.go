package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

const queryTableExists = "SELECT to_regclass($1) IS NOT NULL"

// Postgres is a TableStore backed by a pgx connection pool. Safe for
// concurrent use; the loader uses it from a single goroutine.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store over pool. The caller owns the pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	if pool == nil {
		panic("pool cannot be nil")
	}
	return &Postgres{pool: pool}
}

// RecreateTable drops name if it exists and creates it empty, in one transaction.
func (p *Postgres) RecreateTable(ctx context.Context, name string, columns []ffmm.Column) error {
	t, err := parseTableName(name)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s needs at least one column: %w", name, ffmm.ErrSchemaNormalization)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type.SQLType()
	}

	return p.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+t.Sanitize()); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
		create := fmt.Sprintf("CREATE TABLE %s (%s)", t.Sanitize(), strings.Join(defs, ", "))
		if _, err := tx.Exec(ctx, create); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
		return nil
	})
}

// AppendRows copies rows into name inside a single transaction. Either every
// row is committed or none is.
func (p *Postgres) AppendRows(ctx context.Context, name string, columns []ffmm.Column, rows [][]any) (int64, error) {
	t, err := parseTableName(name)
	if err != nil {
		return 0, err
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	var copied int64
	err = p.inTx(ctx, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(ctx, t.identifier(), names, &rowSource{rows: rows})
		if err != nil {
			return fmt.Errorf("failed to copy into %s: %w", name, err)
		}
		copied = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return copied, nil
}

// CountRows returns the exact row count of name.
func (p *Postgres) CountRows(ctx context.Context, name string) (int64, error) {
	t, err := parseTableName(name)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := p.pool.QueryRow(ctx, "SELECT count(*) FROM "+t.Sanitize()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", name, err)
	}
	return n, nil
}

// TableExists reports whether name resolves to a relation.
func (p *Postgres) TableExists(ctx context.Context, name string) (bool, error) {
	t, err := parseTableName(name)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := p.pool.QueryRow(ctx, queryTableExists, t.Sanitize()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence of %s: %w", name, err)
	}
	return exists, nil
}

// DropTable drops name if it exists.
func (p *Postgres) DropTable(ctx context.Context, name string) error {
	t, err := parseTableName(name)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, "DROP TABLE IF EXISTS "+t.Sanitize()); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	return nil
}

// Promote swaps staging into live in one transaction: drop backup, rename
// live to backup when live exists, rename staging to live. Readers see
// either the old live table or the new one. It returns the row count of
// the table that became the backup, zero when there was no live table.
//
// staging and backup must live in the same schema as live.
func (p *Postgres) Promote(ctx context.Context, live, staging, backup string) (int64, error) {
	liveT, err := parseTableName(live)
	if err != nil {
		return 0, err
	}
	stagingT, err := parseTableName(staging)
	if err != nil {
		return 0, err
	}
	backupT, err := parseTableName(backup)
	if err != nil {
		return 0, err
	}
	if stagingT.schema != liveT.schema || backupT.schema != liveT.schema {
		return 0, fmt.Errorf("staging %s and backup %s must share the schema of %s: %w", staging, backup, live, ffmm.ErrInvalidConfig)
	}

	var previous int64
	err = p.inTx(ctx, func(tx pgx.Tx) error {
		var liveExists bool
		if err := tx.QueryRow(ctx, queryTableExists, liveT.Sanitize()).Scan(&liveExists); err != nil {
			return fmt.Errorf("failed to check existence of %s: %w", live, err)
		}

		if liveExists {
			if _, err := tx.Exec(ctx, "LOCK TABLE "+liveT.Sanitize()+" IN ACCESS EXCLUSIVE MODE"); err != nil {
				return fmt.Errorf("failed to lock %s: %w", live, err)
			}
			if err := tx.QueryRow(ctx, "SELECT count(*) FROM "+liveT.Sanitize()).Scan(&previous); err != nil {
				return fmt.Errorf("failed to count rows of %s: %w", live, err)
			}
		}

		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+backupT.Sanitize()); err != nil {
			return fmt.Errorf("failed to drop backup %s: %w", backup, err)
		}
		if liveExists {
			rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", liveT.Sanitize(), pgx.Identifier{backupT.name}.Sanitize())
			if _, err := tx.Exec(ctx, rename); err != nil {
				return fmt.Errorf("failed to rename %s to %s: %w", live, backup, err)
			}
		}
		rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", stagingT.Sanitize(), pgx.Identifier{liveT.name}.Sanitize())
		if _, err := tx.Exec(ctx, rename); err != nil {
			return fmt.Errorf("failed to rename %s to %s: %w", staging, live, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return previous, nil
}

// inTx runs fn in a transaction on a connection acquired for this call only.
func (p *Postgres) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// rowSource feeds dataset rows to COPY, converting values pgx cannot encode
// on its own.
type rowSource struct {
	rows [][]any
	idx  int
	cur  []any
}

func (r *rowSource) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	src := r.rows[r.idx]
	r.idx++
	r.cur = make([]any, len(src))
	for i, v := range src {
		r.cur[i] = encodeValue(v)
	}
	return true
}

func (r *rowSource) Values() ([]any, error) {
	return r.cur, nil
}

func (r *rowSource) Err() error {
	return nil
}

func encodeValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return pgtype.Numeric{Int: x.Coefficient(), Exp: x.Exponent(), Valid: true}
	default:
		return v
	}
}

var _ ffmm.TableStore = (*Postgres)(nil)
