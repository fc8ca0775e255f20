// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS contains the goose NNN_name.sql files
//
//go:embed *.sql
var FS embed.FS
