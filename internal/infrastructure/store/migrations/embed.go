// Package migrations holds the schema shared by the PostgreSQL and SQLite
// backends. Statements stick to the SQL both engines accept.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
