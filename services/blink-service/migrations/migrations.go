// Package migrations embeds the blink-service schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
