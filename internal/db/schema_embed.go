package db

import _ "embed"

// Schema holds the bootstrap SQL for integration tests and local development.
//
//go:embed migrations/000001_init_schema.up.sql
var Schema string
