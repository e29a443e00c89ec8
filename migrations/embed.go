// Package migrations embeds the SQL schema migrations so binaries carry the
// full schema history.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
