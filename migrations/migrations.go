// Package migrations carries the SQL schema so tests and tooling can
// apply it without a filesystem dependency.
package migrations

import _ "embed"

//go:embed 001_init.sql
var Schema string
