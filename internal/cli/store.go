package cli

import (
	"context"
	"io"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ffmm-chile/ffmm/internal/db"
	"github.com/ffmm-chile/ffmm/internal/store"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// lazyStore connects on first use and keeps the pool until Close. A failed
// connection attempt is retried on the next call.
type lazyStore struct {
	config *ffmm.ConnectionConfig

	mu        sync.Mutex
	connector ffmm.Connector
	pool      *pgxpool.Pool
	tables    *store.Postgres
}

func newLazyStore(config *ffmm.ConnectionConfig) *lazyStore {
	return &lazyStore{config: config}
}

func (s *lazyStore) get(ctx context.Context) (*store.Postgres, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables != nil {
		return s.tables, nil
	}

	connector, err := db.NewConnector(s.config)
	if err != nil {
		return nil, err
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	s.connector, s.pool, s.tables = connector, pool, store.NewPostgres(pool)
	return s.tables, nil
}

func (s *lazyStore) CountRows(ctx context.Context, name string) (int64, error) {
	tables, err := s.get(ctx)
	if err != nil {
		return 0, err
	}
	return tables.CountRows(ctx, name)
}

func (s *lazyStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
	}
	var err error
	if closer, ok := s.connector.(io.Closer); ok {
		err = closer.Close()
	}
	s.connector, s.pool, s.tables = nil, nil, nil
	return err
}
