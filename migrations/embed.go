package migrations

import "embed"

// Files holds the schema DDL. Every file is idempotent and safe to reapply
// on each start.
//
//go:embed *.sql
var Files embed.FS
