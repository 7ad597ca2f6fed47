package migrations

import "embed"

// FS holds the schema migrations applied when the store is opened.
//
//go:embed *.sql
var FS embed.FS
