package storage

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/agendaly/agendaly/libs/db"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the idempotent schema on startup. The exclusion
// constraint on appointments is what makes concurrent overlapping bookings
// resolve to exactly one winner, so the engine refuses to run without it.
func EnsureSchema(ctx context.Context, pool *db.Pool) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
