package source

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/shopspring/decimal"

	"github.com/ffmm-chile/ffmm/internal/dataset"
	"github.com/ffmm-chile/ffmm/pkg/ffmm"
)

// readParquet decodes a whole Parquet file. Column names are the raw field names.
func readParquet(ctx context.Context, f File) (*dataset.Dataset, error) {
	pqReader, err := pqfile.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet table: %w", err)
	}
	defer table.Release()

	schema := table.Schema()
	columns := make([]ffmm.Column, schema.NumFields())
	for i, field := range schema.Fields() {
		columns[i] = ffmm.Column{
			Name:   field.Name,
			Source: field.Name,
			Type:   columnTypeOf(field.Type),
		}
	}

	rows := make([][]any, 0, table.NumRows())
	tableReader := array.NewTableReader(table, 0)
	defer tableReader.Release()

	for tableReader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := tableReader.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make([]any, rec.NumCols())
			for j, col := range rec.Columns() {
				row[j] = arrowValue(col, i)
			}
			rows = append(rows, row)
		}
	}
	if err := tableReader.Err(); err != nil {
		return nil, fmt.Errorf("error reading parquet records: %w", err)
	}

	return dataset.New(columns, rows)
}

func columnTypeOf(dt arrow.DataType) ffmm.ColumnType {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return ffmm.ColumnInteger
	case arrow.UINT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return ffmm.ColumnNumeric
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return ffmm.ColumnFloat
	case arrow.BOOL:
		return ffmm.ColumnBoolean
	case arrow.DATE32, arrow.DATE64:
		return ffmm.ColumnDate
	case arrow.TIMESTAMP:
		return ffmm.ColumnTimestamp
	case arrow.DICTIONARY:
		return columnTypeOf(dt.(*arrow.DictionaryType).ValueType)
	default:
		return ffmm.ColumnText
	}
}

// arrowValue converts element i of arr to the Go value the store encodes
// for the column's type. Nulls become nil.
func arrowValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return string(a.Value(i))
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		v := a.Value(i)
		if v <= math.MaxInt64 {
			return decimal.NewFromInt(int64(v))
		}
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
	case *array.Float16:
		return float64(a.Value(i).Float32())
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return decimal.NewFromBigInt(a.Value(i).BigInt(), -scale)
	case *array.Decimal256:
		scale := a.DataType().(*arrow.Decimal256Type).Scale
		return decimal.NewFromBigInt(a.Value(i).BigInt(), -scale)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	case *array.Dictionary:
		return arrowValue(a.Dictionary(), a.GetValueIndex(i))
	default:
		return arr.ValueStr(i)
	}
}
