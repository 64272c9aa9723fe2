// Package migrations embeds the SQL schema migrations for the remote
// backend, applied with goose at adapter construction.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
