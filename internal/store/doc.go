// Package store implements ffmm.TableStore on PostgreSQL.
//
// Every operation acquires a pooled connection and releases it before
// returning, so no connection is held across loader steps:
//
//	s := store.NewPostgres(pool)
//	_ = s.RecreateTable(ctx, "fondos_mutuos_tmp", columns)
//	n, _ := s.AppendRows(ctx, "fondos_mutuos_tmp", columns, rows)
//	prev, _ := s.Promote(ctx, "fondos_mutuos", "fondos_mutuos_tmp", "fondos_mutuos_backup")
//
// Table names may be schema-qualified ("public.fondos_mutuos"). All
// identifiers are quoted with pgx.Identifier.Sanitize.
package store
