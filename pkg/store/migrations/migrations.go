// Package migrations holds the bun-based schema migrations for the relayer
// database.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registered collection every numbered migration file in
// this package appends to via its init().
var Migrations = migrate.NewMigrations()
