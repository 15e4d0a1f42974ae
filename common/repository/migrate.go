package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/lyzr/colorsort/common/db"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *db.DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Clear removes every color sort sequence
func Clear(ctx context.Context, db *db.DB) error {
	if _, err := db.Exec(ctx, `TRUNCATE color_sort_sequence`); err != nil {
		return fmt.Errorf("failed to clear sequences: %w", err)
	}
	return nil
}
