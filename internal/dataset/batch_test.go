package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition_Scenario(t *testing.T) {
	batches, err := Partition(250000, 100000)
	require.NoError(t, err)

	require.Len(t, batches, 3)
	assert.Equal(t, Batch{Index: 0, Offset: 0, Rows: 100000}, batches[0])
	assert.Equal(t, Batch{Index: 1, Offset: 100000, Rows: 100000}, batches[1])
	assert.Equal(t, Batch{Index: 2, Offset: 200000, Rows: 50000}, batches[2])
}

func TestPartition_Empty(t *testing.T) {
	batches, err := Partition(0, 10)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestPartition_Completeness(t *testing.T) {
	for n := 0; n <= 40; n++ {
		for size := 1; size <= 12; size++ {
			batches, err := Partition(n, size)
			require.NoError(t, err)

			next, sum := 0, 0
			for i, b := range batches {
				assert.Equal(t, i, b.Index)
				assert.Equal(t, next, b.Offset, "n=%d size=%d batch %d not contiguous", n, size, i)
				assert.True(t, b.Rows >= 1 && b.Rows <= size, "n=%d size=%d batch %d has %d rows", n, size, i, b.Rows)
				next = b.End()
				sum += b.Rows
			}
			assert.Equal(t, n, sum, "n=%d size=%d", n, size)
			assert.Equal(t, n, next)
		}
	}
}

func TestPartition_Reproducible(t *testing.T) {
	first, err := Partition(1234567, 50000)
	require.NoError(t, err)
	second, err := Partition(1234567, 50000)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPartition_InvalidArguments(t *testing.T) {
	_, err := Partition(10, 0)
	assert.Error(t, err)

	_, err = Partition(-1, 10)
	assert.Error(t, err)
}

func TestBatch_String(t *testing.T) {
	assert.Equal(t, "batch 2 [100,200)", Batch{Index: 1, Offset: 100, Rows: 100}.String())
}
