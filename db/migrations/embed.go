// Package migrations embeds the SQL migration files so deployments need no
// migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
