package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const schemaMigrationsDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    name VARCHAR(255) PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Migrate applies the embedded up migrations, or reverts them in reverse
// order for direction "down". Applied migrations are tracked by name.
func Migrate(ctx context.Context, db *sqlx.DB, direction string) (int, error) {
	if direction != "up" && direction != "down" {
		return 0, fmt.Errorf("direction must be 'up' or 'down', got %q", direction)
	}

	if _, err := db.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := migrationFiles(direction)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, filename := range files {
		base := strings.TrimSuffix(filename, "."+direction+".sql")

		var done bool
		if err := db.GetContext(ctx, &done,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)", base); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", base, err)
		}
		if (direction == "up") == done {
			continue
		}

		content, err := migrationFS.ReadFile("migrations/" + filename)
		if err != nil {
			return applied, fmt.Errorf("read migration file %s: %w", filename, err)
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return applied, err
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("execute migration %s: %w", filename, err)
		}
		if direction == "up" {
			_, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", base)
		} else {
			_, err = tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE name = $1", base)
		}
		if err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("record migration %s: %w", base, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, err
		}

		log.Printf("Ran migration: %s", filename)
		applied++
	}

	return applied, nil
}

func migrationFiles(direction string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "."+direction+".sql") {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)
	if direction == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	return names, nil
}
