package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/config"
	"github.com/example/nazareth-shop/internal/infrastructure/kafka"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
	"github.com/example/nazareth-shop/internal/logging"
	"github.com/example/nazareth-shop/internal/outbox"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	logger.Info("outbox relay starting",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.Duration("interval", cfg.Kafka.RelayInterval),
		zap.Int("batch", cfg.Kafka.RelayBatch),
	)

	db, err := store.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	relay := outbox.NewRelay(store.NewEventStore(db), producer, cfg.Kafka.RelayInterval, cfg.Kafka.RelayBatch, logger)
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("outbox relay stopped")
	return nil
}
