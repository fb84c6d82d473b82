package migrations

import "embed"

// Migrations holds the schema for the key/value table.
//
//go:embed *.sql
var Migrations embed.FS
