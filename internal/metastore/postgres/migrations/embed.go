// Package migrations embeds the metastore's SQL schema migrations so
// the server binary carries its own schema and needs no external
// migration files at deploy time.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
