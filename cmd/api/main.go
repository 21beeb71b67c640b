package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/casamarket/casa-backend/api/routes"
	"github.com/casamarket/casa-backend/internal/checkout"
	"github.com/casamarket/casa-backend/internal/customers"
	"github.com/casamarket/casa-backend/internal/hires"
	"github.com/casamarket/casa-backend/internal/ledger"
	"github.com/casamarket/casa-backend/internal/notifications"
	"github.com/casamarket/casa-backend/internal/orders"
	"github.com/casamarket/casa-backend/internal/pricing"
	"github.com/casamarket/casa-backend/internal/products"
	"github.com/casamarket/casa-backend/internal/ratings"
	"github.com/casamarket/casa-backend/internal/returns"
	"github.com/casamarket/casa-backend/internal/sellers"
	"github.com/casamarket/casa-backend/pkg/auth/session"
	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/metrics"
	"github.com/casamarket/casa-backend/pkg/migrate"
	"github.com/casamarket/casa-backend/pkg/outbox"
	"github.com/casamarket/casa-backend/pkg/pubsub"
	"github.com/casamarket/casa-backend/pkg/redis"
	"github.com/casamarket/casa-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

type closer func() error

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
		Format:      cfg.App.LogFormat,
	})

	var closers []closer
	exit := func(ctx context.Context, msg string, err error) {
		logg.Error(ctx, msg, err)
		closeAll(ctx, logg, closers)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		exit(context.Background(), "failed to bootstrap database", err)
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		exit(context.Background(), "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		exit(context.Background(), "failed to bootstrap redis", err)
	}
	closers = append(closers, redisClient.Close)

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		exit(context.Background(), "failed to create session manager", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	domainMetrics := metrics.NewDomain(registry)
	httpMetrics := metrics.NewHTTP(registry)

	var (
		orderNotifier  checkout.OrderNotifier
		returnNotifier returns.DecisionNotifier
	)
	if cfg.FeatureFlags.EmailNotifications {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			exit(context.Background(), "failed to bootstrap pubsub", err)
		}
		closers = append(closers, pubsubClient.Close)

		mailer, err := notifications.NewMailer(notifications.NewTopicPublisher(pubsubClient.EmailPublisher()), logg)
		if err != nil {
			exit(context.Background(), "failed to create mailer", err)
		}
		orderNotifier = mailer
		returnNotifier = mailer
	}

	var evidence returns.EvidenceStore
	if cfg.GCS.Enabled() {
		gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			exit(context.Background(), "failed to bootstrap gcs", err)
		}
		evidence = gcsClient
	} else {
		logg.Warn(context.Background(), "gcs bucket not configured, evidence uploads disabled")
	}

	calculator, err := pricing.NewCalculator(cfg.Pricing.CasaChargeBPS)
	if err != nil {
		exit(context.Background(), "failed to create pricing calculator", err)
	}

	gdb := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(gdb), logg)
	customerRepo := customers.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)

	ledgerService, err := ledger.NewService(ledger.NewRepository(gdb), logg, domainMetrics)
	if err != nil {
		exit(context.Background(), "failed to create ledger service", err)
	}

	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:         dbClient,
		Customers:  customerRepo,
		Products:   products.NewRepository(gdb),
		Orders:     orderRepo,
		Ledger:     ledgerService,
		Outbox:     emitter,
		Calculator: calculator,
		Notifier:   orderNotifier,
		Logger:     logg,
		Metrics:    domainMetrics,
	})
	if err != nil {
		exit(context.Background(), "failed to create checkout service", err)
	}

	orderService, err := orders.NewService(orderRepo, dbClient, emitter, logg, domainMetrics)
	if err != nil {
		exit(context.Background(), "failed to create orders service", err)
	}

	returnService, err := returns.NewService(returns.Deps{
		Repo:      returns.NewRepository(gdb),
		Tx:        dbClient,
		Ledger:    ledgerService,
		Outbox:    emitter,
		Evidence:  evidence,
		Notifier:  returnNotifier,
		Customers: customerRepo,
		Logger:    logg,
		Metrics:   domainMetrics,
	})
	if err != nil {
		exit(context.Background(), "failed to create returns service", err)
	}

	ratingService, err := ratings.NewService(ratings.NewRepository(gdb), dbClient, emitter, logg, domainMetrics)
	if err != nil {
		exit(context.Background(), "failed to create ratings service", err)
	}

	hireService, err := hires.NewService(hires.NewRepository(gdb), dbClient, sellers.NewRepository(gdb), emitter, logg)
	if err != nil {
		exit(context.Background(), "failed to create hires service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Gatherer:    registry,
			HTTPMetrics: httpMetrics,
			DB:          dbClient,
			Redis:       redisClient,
			Sessions:    sessionManager,
			Checkout:    checkoutService,
			Orders:      orderService,
			Ledger:      ledgerService,
			Returns:     returnService,
			Ratings:     ratingService,
			Hires:       hireService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			exit(ctx, "api server stopped unexpectedly", err)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	closeAll(ctx, logg, closers)
}

// closeAll releases resources in reverse order of acquisition.
func closeAll(ctx context.Context, logg *logger.Logger, closers []closer) {
	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i]())
	}
	for _, e := range multierr.Errors(err) {
		logg.Error(ctx, "error releasing resource", e)
	}
}
