// Package migrations embeds the schema migrations applied by cmd/migrate and
// by the integration test harness.
package migrations

import "embed"

// FS holds the golang-migrate up/down files.
//
//go:embed *.sql
var FS embed.FS
