// Package migrations embeds the Postgres schema so it ships with the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
