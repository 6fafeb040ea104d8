// Package checksum fingerprints source snapshots.
//
// A fingerprint is the lowercase hex SHA-256 of the exact bytes of a file,
// so two loads of the same snapshot report the same value regardless of
// where the file was read from.
//
//	sum, err := checksum.Of(f)
//
// Of reads the whole stream and rewinds it, leaving f ready for decoding.
package checksum
