package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"badgehub/internal/platform/logger"
	"badgehub/internal/platform/store"
)

const migrationTable = "schema_migrations"

// Apply runs every pending .sql file in lexical order and records it.
// Returns the number of files applied on this run
func Apply(ctx context.Context, db store.TxRunner, log logger.Logger) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("migrations: nil db")
	}

	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		return 0, fmt.Errorf("migrations: read dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	const ensure = `
create table if not exists ` + migrationTable + ` (
	name text primary key,
	applied_at timestamptz not null default now()
)`
	if _, err := db.Exec(ctx, ensure); err != nil {
		return 0, fmt.Errorf("migrations: ensure table: %w", err)
	}

	applied := 0
	for _, name := range files {
		done, err := isApplied(ctx, db, name)
		if err != nil {
			return applied, fmt.Errorf("migrations: check %s: %w", name, err)
		}
		if done {
			continue
		}

		content, err := fs.ReadFile(FS, name)
		if err != nil {
			return applied, fmt.Errorf("migrations: read %s: %w", name, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}

		err = db.Tx(ctx, func(q store.RowQuerier) error {
			if _, err := q.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := q.Exec(ctx, "insert into "+migrationTable+" (name) values ($1)", name)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migrations: apply %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("applied")
		applied++
	}
	return applied, nil
}

func isApplied(ctx context.Context, db store.TxRunner, name string) (bool, error) {
	var one int
	err := db.QueryRow(ctx, "select 1 from "+migrationTable+" where name = $1", name).Scan(&one)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
