package pgstore

import "embed"

// Migrations holds the goose migrations for the task tables and the
// model usage views. Pass it to pg.Migrate together with MigrationsDir.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of the migrations inside Migrations.
const MigrationsDir = "migrations"
