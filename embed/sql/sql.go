package sql

import _ "embed"

// Schema contains the database schema applied on init.
//
//go:embed schema.sql
var Schema string
