// Package migrations carries the Postgres schema.
package migrations

import "embed"

// FS holds the *.sql migrations, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
