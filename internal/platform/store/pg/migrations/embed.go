// Package migrations contains the embedded Postgres schema and a runner
// that applies each file at most once
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
