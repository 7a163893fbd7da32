// Package migrations embeds the goose migrations that create the
// PostgreSQL layout.
package migrations

import "embed"

// FS holds the *.sql migrations at its root.
//
//go:embed *.sql
var FS embed.FS
