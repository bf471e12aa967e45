package main

import (
	"context"
	"flag"

	"caseportal/internal/config"
	"caseportal/internal/database"
	"caseportal/internal/log"
)

func main() {
	command := flag.String("command", "up", "migration command (up/down/status/version/reset)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := log.New(cfg.Environment, cfg.Log.Level)

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	db := database.OpenDB(pool)
	defer db.Close()

	migrator, err := database.NewMigrator(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create migrator")
	}

	switch *command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
		logger.Info().Msg("migrations applied")

	case "down":
		if err := migrator.Down(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to roll back migration")
		}
		logger.Info().Msg("rolled back one migration")

	case "status":
		if err := migrator.Status(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to read migration status")
		}

	case "version":
		version, err := migrator.Version(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read migration version")
		}
		logger.Info().Int64("version", version).Msg("current migration version")

	case "reset":
		if cfg.Environment == "production" {
			logger.Fatal().Msg("reset is disabled in production")
		}
		if err := migrator.Reset(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to reset migrations")
		}
		logger.Info().Msg("migrations reset")

	default:
		logger.Fatal().Str("command", *command).Msg("unknown command")
	}
}
