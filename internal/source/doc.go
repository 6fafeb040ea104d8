// Package source materializes a columnar snapshot into a dataset.Dataset.
//
// A source is addressed by a local path or an s3://bucket/key URI and decoded
// according to its extension:
//   - .parquet, .pq: Apache Parquet, read in full through Arrow
//   - .csv: delimited text with a header row; ';' or ',' is detected from the
//     header and column types are inferred from every cell
//
// The whole file is read before anything is returned. Datasets are therefore
// bounded by available memory.
package source
