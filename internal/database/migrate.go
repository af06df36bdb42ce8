package database

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"

	"github.com/samber/oops"
)

//go:embed schema.sql
var schema string

// Statements splits the embedded schema into individual statements.
func Statements() []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate applies the embedded MySQL schema. Every statement is
// idempotent so the command can run on each deploy.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return oops.Code("MIGRATION_FAILED").With("statement", i).Wrap(err)
		}
	}
	return nil
}
