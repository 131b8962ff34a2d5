// Package migrations embeds the carrierd SQL migration files.
//
// carrierd applies these on startup so the event journal schema exists
// without the SQL files being present on the device filesystem.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files at its root.
//
//go:embed *.sql
var FS embed.FS
