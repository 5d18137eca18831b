// Package migrations embeds the SQL schema and applies it at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
