package naming

import (
	"strings"
	"testing"

	"github.com/ffmm-chile/ffmm/pkg/ffmm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumn(t *testing.T) {
	n := New()
	tests := []struct {
		raw  string
		want string
	}{
		{"Fecha Inf", "fecha_inf"},
		{"Nom.Adm", "nom_adm"},
		{"Valor Cuota", "valor_cuota"},
		{"Categoría", "categoria"},
		{"categoria ", "categoria"},
		{"  Patrimonio  Neto ($) ", "patrimonio_neto"},
		{"Año--Mes", "ano_mes"},
		{"RUN_FM", "run_fm"},
		{"Remuneración Fija %", "remuneracion_fija"},
		{"1er Trimestre", "c_1er_trimestre"},
		{"ÑUÑOA", "nunoa"},
		{"...", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Column(tt.raw))
		})
	}
}

func TestColumn_Idempotent(t *testing.T) {
	n := New()
	for _, raw := range []string{"Fecha Inf", "Categoría", "Nom.Adm", "x__y"} {
		once := n.Column(raw)
		assert.Equal(t, once, n.Column(raw), "same input twice")
		assert.Equal(t, once, n.Column(once), "normalizing a normalized name")
	}
}

func TestColumn_Truncates(t *testing.T) {
	got := New().Column(strings.Repeat("a", 100))
	assert.Len(t, got, ffmm.MaxIdentifierLength)
}

func TestNormalize_Scenario(t *testing.T) {
	got, err := New().Normalize([]string{"Fecha Inf", "Nom.Adm", "Valor Cuota"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fecha_inf", "nom_adm", "valor_cuota"}, got)
}

func TestNormalize_CollisionsFirstSeenWins(t *testing.T) {
	got, err := New().Normalize([]string{"Categoría", "categoria "})
	require.NoError(t, err)
	assert.Equal(t, []string{"categoria", "categoria_1"}, got)
}

func TestNormalize_ManyCollisions(t *testing.T) {
	got, err := New().Normalize([]string{"a", "A", "a.", "a_1", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a_1", "a_2", "a_1_1", "b"}, got)
}

func TestNormalize_AllUnique(t *testing.T) {
	raw := []string{"x", "X", "x ", "x-", "x_", "x.", "x,", "x;"}
	got, err := New().Normalize(raw)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, name := range got {
		assert.False(t, seen[name], "duplicate %q", name)
		seen[name] = true
	}
	assert.Equal(t, "x", got[0])
}

func TestNormalize_CollisionAtMaxLength(t *testing.T) {
	long := strings.Repeat("b", 80)
	got, err := New().Normalize([]string{long, long + "!"})
	require.NoError(t, err)
	assert.Len(t, got[0], ffmm.MaxIdentifierLength)
	assert.LessOrEqual(t, len(got[1]), ffmm.MaxIdentifierLength)
	assert.True(t, strings.HasSuffix(got[1], "_1"))
}

func TestNormalize_EmptyName(t *testing.T) {
	_, err := New().Normalize([]string{"ok", "%%%"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ffmm.ErrSchemaNormalization)
	assert.Contains(t, err.Error(), "column 2")
}

func TestNormalize_EmptyHeader(t *testing.T) {
	got, err := New().Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
