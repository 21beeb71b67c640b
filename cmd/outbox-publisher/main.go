package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/metrics"
	"github.com/casamarket/casa-backend/pkg/migrate"
	"github.com/casamarket/casa-backend/pkg/outbox"
	"github.com/casamarket/casa-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	exitCode := 0
	// Registered first so it runs after every other deferred cleanup.
	defer func() { os.Exit(exitCode) }()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	boot := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(boot, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(boot, logg, "failed to load config", err)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(boot, cfg.DB, logg)
	if err != nil {
		fatal(boot, logg, "failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(boot, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(boot, cfg, logg, dbClient); err != nil {
		fatal(boot, logg, "failed to run dev migrations", err)
	}

	psClient, err := pubsub.NewClient(boot, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		fatal(boot, logg, "failed to bootstrap pubsub", err)
	}
	defer func() {
		if err := psClient.Close(); err != nil {
			logg.Error(boot, "error closing pubsub client", err)
		}
	}()

	sink := pubsub.NewSink(psClient)
	defer sink.Stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	relay, err := outbox.NewRelay(outbox.RelayParams{
		Tx:    dbClient,
		Store: outbox.NewRepository(dbClient.DB()),
		Sink:  sink,
		Topic: func(eventType enums.OutboxEventType) string {
			return outbox.TopicFor(cfg.PubSub, eventType)
		},
		Config:  outbox.RelayConfigFrom(cfg.Outbox),
		Logger:  logg,
		Metrics: metrics.NewOutbox(registry),
	})
	if err != nil {
		fatal(boot, logg, "failed to create outbox relay", err)
	}

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
	})

	admin := adminServer(":"+cfg.App.Port, registry, dbClient)
	go func() {
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "admin server stopped", err)
		}
	}()

	logg.Info(ctx, "starting outbox publisher")
	runErr := relay.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "admin server shutdown failed", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", runErr)
		exitCode = 1
		return
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// adminServer exposes liveness and metrics for the worker's process manager.
func adminServer(addr string, gatherer prometheus.Gatherer, dbClient *db.Client) *http.Server {
	r := chi.NewRouter()
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := dbClient.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
}

func fatal(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
