package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/helpdeskhq/ticketflow-backend/pkg/config"
	"github.com/helpdeskhq/ticketflow-backend/pkg/db"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
	"github.com/helpdeskhq/ticketflow-backend/pkg/metrics"
	"github.com/helpdeskhq/ticketflow-backend/pkg/migrate"
	"github.com/helpdeskhq/ticketflow-backend/pkg/outbox"
	"github.com/helpdeskhq/ticketflow-backend/pkg/sink"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var messageSink sink.Sink
	if cfg.Sink.IsPubSub() {
		pubsubSink, err := sink.NewPubSubSink(context.Background(), cfg.PubSub)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub sink", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubSink.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub sink", err)
			}
		}()
		messageSink = pubsubSink
	} else {
		logSink, err := sink.NewLogSink(logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap log sink", err)
			os.Exit(1)
		}
		messageSink = logSink
	}

	registry := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Config:  cfg,
		Logger:  logg,
		Repo:    outbox.NewRepository(dbClient.DB()),
		Sink:    messageSink,
		Metrics: metrics.NewOutboxMetrics(registry),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"service_kind": "outbox-publisher",
		"sink_kind":    cfg.Sink.Kind,
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}
