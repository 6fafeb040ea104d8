// Package naming turns raw column labels from regulatory filings into
// PostgreSQL-safe identifiers.
//
// A label is normalized by decomposing it (NFKD), dropping combining marks
// and any remaining non-ASCII runes, collapsing every run of non-alphanumeric
// characters into a single underscore, trimming underscores at both ends and
// lowercasing:
//
//	"Valor Cuota"  -> "valor_cuota"
//	"Nom.Adm"      -> "nom_adm"
//	"Categoría"    -> "categoria"
//	"1er Trim"     -> "c_1er_trim"
//
// Normalizer.Normalize applies the rule to a whole header and resolves
// collisions first-seen-wins: the first label keeps the plain name, later
// ones receive _1, _2, ... suffixes.
package naming
