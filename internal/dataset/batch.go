package dataset

import "fmt"

// Batch is a contiguous slice of dataset rows written in one transaction.
type Batch struct {
	Index  int // zero-based position in the partition
	Offset int
	Rows   int
}

// End returns the offset one past the last row of the batch.
func (b Batch) End() int {
	return b.Offset + b.Rows
}

func (b Batch) String() string {
	return fmt.Sprintf("batch %d [%d,%d)", b.Index+1, b.Offset, b.End())
}

// Partition splits n rows into batches of at most size rows, in row order.
// The result depends only on n and size: offsets are contiguous, the batches
// never overlap and their sizes sum to n. n == 0 yields no batches.
func Partition(n, size int) ([]Batch, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	if n < 0 {
		return nil, fmt.Errorf("row count cannot be negative, got %d", n)
	}

	batches := make([]Batch, 0, (n+size-1)/size)
	for offset := 0; offset < n; offset += size {
		rows := size
		if offset+rows > n {
			rows = n - offset
		}
		batches = append(batches, Batch{Index: len(batches), Offset: offset, Rows: rows})
	}
	return batches, nil
}
