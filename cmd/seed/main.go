// Package main creates the whale_events schema and optionally seeds a year of
// mock whale days. Seeding is idempotent.
package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whale-tracker/internal/config"
	"whale-tracker/internal/logging"
	"whale-tracker/internal/seed"
	"whale-tracker/internal/storage/migrations"
	pgstore "whale-tracker/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	mock := flag.Bool("mock", false, "Insert mock whale events after creating the schema")
	days := flag.Int("days", seed.DefaultDays, "Days of mock history ending yesterday")
	probability := flag.Float64("probability", seed.DefaultProbability, "Chance of a whale day per symbol per day")
	symbols := flag.String("symbols", strings.Join(seed.MockSymbols, ","), "Comma-separated mock symbols")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	dsn := *postgresDSN
	if dsn == "" {
		dsn = cfg.Storage.PostgresDSN
	}
	if dsn == "" {
		logger.Fatal().Msg("--postgres-dsn or storage.postgres_dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}
	logger.Info().Msg("schema ready")

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("apply clickhouse schema")
		}
		conn.Close()
		logger.Info().Msg("clickhouse schema ready")
	}

	if !*mock {
		return
	}

	events := seed.Generate(rand.New(rand.NewSource(*randSeed)), seed.Options{
		Symbols:     strings.Split(*symbols, ","),
		End:         time.Now().AddDate(0, 0, -1),
		Days:        *days,
		Probability: *probability,
	})

	inserted, skipped, err := seed.Insert(ctx, pgstore.NewWhaleEventStore(pool), events)
	if err != nil {
		logger.Fatal().Err(err).Int("inserted", inserted).Msg("seed events")
	}
	logger.Info().
		Int("generated", len(events)).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Int64("seed", *randSeed).
		Msg("mock events seeded")
}
