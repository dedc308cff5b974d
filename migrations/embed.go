// Package migrations embeds the SQL migrations for the migrate command.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
