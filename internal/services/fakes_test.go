package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ffmm-chile/ffmm/internal/dataset"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

type memTable struct {
	columns []ffmm.Column
	rows    [][]any
}

// memStore is an in-memory ffmm.TableStore.
type memStore struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string]*memTable)}
}

func (m *memStore) RecreateTable(_ context.Context, name string, columns []ffmm.Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = &memTable{columns: columns}
	return nil
}

func (m *memStore) AppendRows(_ context.Context, name string, _ []ffmm.Column, rows [][]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	if !ok {
		return 0, fmt.Errorf("relation %q does not exist", name)
	}
	t.rows = append(t.rows, rows...)
	return int64(len(rows)), nil
}

func (m *memStore) CountRows(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	if !ok {
		return 0, fmt.Errorf("relation %q does not exist", name)
	}
	return int64(len(t.rows)), nil
}

func (m *memStore) TableExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tables[name]
	return ok, nil
}

func (m *memStore) DropTable(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, name)
	return nil
}

func (m *memStore) Promote(_ context.Context, live, staging, backup string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.tables[staging]
	if !ok {
		return 0, fmt.Errorf("relation %q does not exist", staging)
	}
	var previous int64
	delete(m.tables, backup)
	if lt, ok := m.tables[live]; ok {
		previous = int64(len(lt.rows))
		m.tables[backup] = lt
	}
	m.tables[live] = st
	delete(m.tables, staging)
	return previous, nil
}

func (m *memStore) rows(name string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tables[name]; ok {
		return t.rows
	}
	return nil
}

func (m *memStore) has(name string) bool {
	ok, _ := m.TableExists(context.Background(), name)
	return ok
}

// faultyStore wraps a TableStore and injects write faults.
type faultyStore struct {
	ffmm.TableStore

	failBatch   int   // 1-based batch to fail; 0 disables
	dropRows    int   // rows silently discarded from every batch that has them
	appendSizes []int // rows received per AppendRows call
}

func (f *faultyStore) AppendRows(ctx context.Context, name string, cols []ffmm.Column, rows [][]any) (int64, error) {
	f.appendSizes = append(f.appendSizes, len(rows))
	if f.failBatch == len(f.appendSizes) {
		return 0, fmt.Errorf("connection reset by peer")
	}
	if f.dropRows > 0 && len(rows) > f.dropRows {
		rows = rows[:len(rows)-f.dropRows]
	}
	return f.TableStore.AppendRows(ctx, name, cols, rows)
}

type mockReader struct {
	data  *dataset.Dataset
	err   error
	calls int
}

func (m *mockReader) Read(_ context.Context, _ string) (*dataset.Dataset, error) {
	m.calls++
	return m.data, m.err
}

type progressCall struct {
	batch, total int
	loaded, rows int64
}

// recordingLogger captures messages and progress calls.
type recordingLogger struct {
	mu       sync.Mutex
	infos    []string
	errors   []string
	progress []progressCall
}

func (l *recordingLogger) Verbose(string, ...interface{}) {}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Progress(batch, total int, loaded, rows int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, progressCall{batch, total, loaded, rows})
}

// newTestService wires a LoadService to reader and tables.
func newTestService(reader SourceReader, tables ffmm.TableStore, logger ffmm.Logger) *LoadService {
	svc := NewLoadService(
		func(*ffmm.ConnectionConfig) (ffmm.Connector, error) { return nil, fmt.Errorf("not used") },
		reader,
		logger,
	)
	svc.openStore = func(context.Context, ffmm.LoadConfig, uuid.UUID) (ffmm.TableStore, func(), error) {
		return tables, func() {}, nil
	}
	return svc
}

// fundDataset builds n rows with the raw headers of a CMF export.
func fundDataset(n int) *dataset.Dataset {
	cols := []ffmm.Column{
		{Name: "Run Fondo", Source: "Run Fondo", Type: ffmm.ColumnInteger},
		{Name: "Nombre Fondo", Source: "Nombre Fondo", Type: ffmm.ColumnText},
		{Name: "Rentabilidad (%)", Source: "Rentabilidad (%)", Type: ffmm.ColumnFloat},
	}
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i), fmt.Sprintf("Fondo %d", i), float64(i) / 100}
	}
	ds, err := dataset.New(cols, rows)
	if err != nil {
		panic(err)
	}
	return ds
}

// fundDatasetWithHeader builds a single text row under the given raw labels.
func fundDatasetWithHeader(t *testing.T, header []string) *dataset.Dataset {
	t.Helper()
	cols := make([]ffmm.Column, len(header))
	row := make([]any, len(header))
	for i, h := range header {
		cols[i] = ffmm.Column{Name: h, Source: h, Type: ffmm.ColumnText}
		row[i] = h
	}
	ds, err := dataset.New(cols, [][]any{row})
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

// blockingReader blocks until the context ends.
type blockingReader struct{}

func (blockingReader) Read(ctx context.Context, _ string) (*dataset.Dataset, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
