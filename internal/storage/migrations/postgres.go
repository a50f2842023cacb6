package migrations

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"whale-tracker/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded Postgres schema. Every file uses
// IF NOT EXISTS, so reapplying is a no-op.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger zerolog.Logger) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range files {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		logger.Debug().Str("migration", m.Name).Msg("postgres migration applied")
	}

	return nil
}
