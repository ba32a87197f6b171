// Package migrations embeds the schema migration files so both binaries can
// apply them without shipping loose SQL alongside the executable.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
