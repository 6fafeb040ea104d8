package services_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffmm-chile/ffmm/internal/db"
	"github.com/ffmm-chile/ffmm/internal/logging"
	"github.com/ffmm-chile/ffmm/internal/services"
	"github.com/ffmm-chile/ffmm/internal/source"
	testhelpers "github.com/ffmm-chile/ffmm/internal/testing"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// writeFundsCSV writes n rows in the layout of the CMF registry export.
func writeFundsCSV(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Run Fondo;Nombre Fondo;Categoría;Fecha Inf;Valor Cuota;Rentabilidad (%)\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d;Fondo %d;Deuda < 365;2024-01-%02d;%d.%02d;%d.5\n", 8000+i, i, 1+i%28, 1000+i%500, i%100, i%7)
	}
	path := filepath.Join(t.TempDir(), fmt.Sprintf("ffmm_%d.csv", n))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestLoadService_Integration_FirstAndSecondRun(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	pool := testhelpers.GetTestPool(t, connString)
	schema := testhelpers.CreateTestSchema(t, pool)
	ctx := context.Background()

	svc := services.NewLoadService(db.NewConnector, source.NewReader(source.NewOpener(nil)), logging.NewNullLogger())
	live := schema + ".fondos_mutuos"
	count := func(table string) int64 {
		var n int64
		require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n))
		return n
	}
	exists := func(table string) bool {
		var ok bool
		require.NoError(t, pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&ok))
		return ok
	}

	first, err := svc.Load(ctx, ffmm.LoadConfig{
		SourcePath:       writeFundsCSV(t, 250000),
		DestinationTable: live,
		BatchSize:        100000,
		ConnectionString: connString,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(250000), first.RowsLoaded)
	assert.Equal(t, int64(0), first.PreviousBackupRows)
	assert.Len(t, first.SourceChecksum, 64)
	assert.Equal(t, 3, first.Batches)
	assert.Equal(t, []string{"run_fondo", "nombre_fondo", "categoria", "fecha_inf", "valor_cuota", "rentabilidad"}, first.Columns)
	assert.Equal(t, int64(250000), count(live))
	assert.False(t, exists(live+"_tmp"))
	assert.False(t, exists(live+"_backup"))

	var typ string
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT data_type FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = 'fondos_mutuos' AND column_name = 'fecha_inf'`, schema).Scan(&typ))
	assert.Equal(t, "date", typ)

	second, err := svc.Load(ctx, ffmm.LoadConfig{
		SourcePath:       writeFundsCSV(t, 1000),
		DestinationTable: live,
		ConnectionString: connString,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), second.RowsLoaded)
	assert.Equal(t, int64(250000), second.PreviousBackupRows)
	assert.Equal(t, 1, second.Batches)
	assert.Equal(t, int64(1000), count(live))
	assert.Equal(t, int64(250000), count(live+"_backup"))
	assert.False(t, exists(live+"_tmp"))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestLoadService_Integration_MissingSourceLeavesLiveTable(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	pool := testhelpers.GetTestPool(t, connString)
	schema := testhelpers.CreateTestSchema(t, pool)
	ctx := context.Background()

	svc := services.NewLoadService(db.NewConnector, source.NewReader(source.NewOpener(nil)), logging.NewNullLogger())
	live := schema + ".fondos_mutuos"

	_, err := svc.Load(ctx, ffmm.LoadConfig{
		SourcePath: writeFundsCSV(t, 10), DestinationTable: live, ConnectionString: connString,
	})
	require.NoError(t, err)

	_, err = svc.Load(ctx, ffmm.LoadConfig{
		SourcePath: "/nonexistent/ffmm_merged.parquet", DestinationTable: live, ConnectionString: connString,
	})
	assert.ErrorIs(t, err, ffmm.ErrSourceNotFound)

	var n int64
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM "+live).Scan(&n))
	assert.Equal(t, int64(10), n)
}
