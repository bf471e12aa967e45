package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"caseportal/internal/cache"
	"caseportal/internal/config"
	"caseportal/internal/database"
	"caseportal/internal/handlers"
	"caseportal/internal/jobs"
	"caseportal/internal/log"
	"caseportal/internal/mail"
	"caseportal/internal/repository"
	"caseportal/internal/security"
	"caseportal/internal/server"
	"caseportal/internal/service"
	"caseportal/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log.Level)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	db := database.OpenDB(dbPool)

	if cfg.Postgres.AutoMigrate {
		migrator, err := database.NewMigrator(db)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init migrator")
		}
		if err := migrator.Up(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	// Without a storage endpoint the audit archive export is disabled.
	var objectStore *storage.ObjectStore
	if cfg.Storage.Endpoint != "" {
		objectStore, err = storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure audit bucket failed")
		}
	} else {
		logger.Warn().Msg("storage endpoint not set, audit archive export disabled")
	}

	hasher, err := security.NewPasswordHasher(security.DefaultParams)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init password hasher")
	}

	audit := service.NewAuditLogger(repository.NewAuditRepository(db), logger)
	authService := service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewSessionRepository(db),
		hasher,
		audit,
		cfg,
		logger,
	)
	otpService := service.NewOtpService(
		repository.NewOtpChallengeRepository(db),
		repository.NewVerificationTokenRepository(db),
		newMailSender(cfg, redisClient, logger),
		security.NewOTPHasher(cfg.Security.OTPPepper),
		cfg.OTP,
		logger,
	)

	if created, err := authService.EnsureBootstrapAdmin(ctx, cfg.Security.AdminBootstrapPassword); err != nil {
		logger.Fatal().Err(err).Msg("bootstrap admin failed")
	} else if created {
		logger.Warn().Msg("bootstrap superadmin created, change its password on first login")
	}

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		deps := jobs.Deps{
			Claims:   repository.NewJobRunRepository(db),
			Sessions: authService,
			Otp:      otpService,
		}
		if objectStore != nil {
			deps.Exporter = service.NewArchiveExporter(audit, objectStore, logger)
		}
		scheduler = jobs.NewScheduler(deps, cfg.Jobs.SweepSpec, cfg.Jobs.AuditExportSpec, logger)
		if err := scheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("scheduler start failed")
		}
	}

	dependencies := []handlers.Dependency{
		{Name: "database", Pinger: dbPool},
		{Name: "redis", Pinger: handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})},
	}
	if objectStore != nil {
		dependencies = append(dependencies, handlers.Dependency{Name: "storage", Pinger: objectStore})
	}
	handlerSet := handlers.NewHandlerSet(logger, cfg, authService, otpService, dependencies...)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, authService, dbPool, db, redisClient)
}

// newMailSender queues OTP mail for the mailer process, or only logs it in
// local setups without SMTP.
func newMailSender(cfg *config.AppConfig, client *redis.Client, logger zerolog.Logger) service.MailSender {
	if cfg.Mail.Driver == config.MailDriverLog {
		logger.Warn().Msg("mail driver is log, OTP mail will not be delivered")
		return mail.NewLogSender(logger)
	}
	return mail.NewQueue(client, cfg.Mail.Stream)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	authService *service.AuthService,
	pool *pgxpool.Pool,
	db *sql.DB,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	authService.Wait()

	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("database close error")
	}
	pool.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
