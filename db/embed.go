// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for every table, index, and enum the service uses.
// It is idempotent and safe to apply on every boot.
//
//go:embed migrations/001_schema.sql
var Schema string
