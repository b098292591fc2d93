// Package migrations embeds the SQL meta-schema so the server binary can
// migrate on startup without shipping loose files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
