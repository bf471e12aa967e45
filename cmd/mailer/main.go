package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"caseportal/internal/cache"
	"caseportal/internal/config"
	"caseportal/internal/log"
	"caseportal/internal/mail"
	"caseportal/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log.Level).With().Str("service", "mailer").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	consumerName := cfg.Mail.Consumer
	if consumerName == "" {
		consumerName, _ = os.Hostname()
	}

	processor := mail.NewProcessor(mail.NewSMTPSender(cfg.Mail.SMTP), logger)
	consumer := queue.NewConsumer(client, queue.Options{
		Stream:        cfg.Mail.Stream,
		Group:         cfg.Mail.Group,
		Consumer:      consumerName,
		ClaimInterval: cfg.Mail.ClaimInterval,
	}, logger, processor)

	logger.Info().Str("stream", cfg.Mail.Stream).Str("consumer", consumerName).Msg("mailer started")

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("mailer exited cleanly")
}
