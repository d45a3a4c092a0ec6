package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/helpdeskhq/ticketflow-backend/api/controllers"
	"github.com/helpdeskhq/ticketflow-backend/api/routes"
	"github.com/helpdeskhq/ticketflow-backend/internal/ai"
	"github.com/helpdeskhq/ticketflow-backend/internal/tickets"
	"github.com/helpdeskhq/ticketflow-backend/internal/webhooks"
	"github.com/helpdeskhq/ticketflow-backend/pkg/config"
	"github.com/helpdeskhq/ticketflow-backend/pkg/db"
	"github.com/helpdeskhq/ticketflow-backend/pkg/idempotency"
	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
	"github.com/helpdeskhq/ticketflow-backend/pkg/metrics"
	"github.com/helpdeskhq/ticketflow-backend/pkg/migrate"
	"github.com/helpdeskhq/ticketflow-backend/pkg/outbox"
	"github.com/helpdeskhq/ticketflow-backend/pkg/redis"
	pkgwebhooks "github.com/helpdeskhq/ticketflow-backend/pkg/webhooks"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	// A shared Redis makes the guards correct across instances. Without it
	// the in-memory store only protects a single process.
	var guardStore idempotency.Store
	readyChecks := map[string]controllers.Pinger{"database": dbClient}
	if cfg.Redis.Configured() {
		redisClient, err := redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		guardStore = redisClient
		readyChecks["redis"] = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, using the in-memory idempotency store (single instance only)")
		guardStore = idempotency.NewMemoryStore()
	}

	commandGuard, err := idempotency.NewGuard(guardStore, "cmd", cfg.Eventing.CommandIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create command guard", err)
		os.Exit(1)
	}
	webhookGuard, err := idempotency.NewGuard(guardStore, "webhook", cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	var aiClient ai.Client
	if cfg.AI.APIKey != "" {
		aiClient, err = ai.NewHTTPClient(cfg.AI)
		if err != nil {
			logg.Error(context.Background(), "failed to create ai client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "ai api key not configured, classification endpoint disabled")
	}

	writer := outbox.NewWriter()
	ticketService, err := tickets.NewService(tickets.NewRepository(dbClient.DB()), writer, dbClient, aiClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ticket service", err)
		os.Exit(1)
	}

	verifier := pkgwebhooks.NewVerifier(cfg.Webhooks.Secrets, cfg.Webhooks.Skew, logg)
	webhookService, err := webhooks.NewService(verifier, webhookGuard, webhooks.NewRepository(dbClient.DB()), writer, dbClient, webhookMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:         cfg,
			Logger:         logg,
			ReadyChecks:    readyChecks,
			TicketService:  ticketService,
			WebhookService: webhookService,
			CommandGuard:   commandGuard,
			Registry:       registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
