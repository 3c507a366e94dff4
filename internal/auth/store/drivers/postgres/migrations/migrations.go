// Package migrations embeds the postgres schema so it ships inside the binary.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
