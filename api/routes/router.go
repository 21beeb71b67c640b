package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/casamarket/casa-backend/api/controllers"
	creditcontrollers "github.com/casamarket/casa-backend/api/controllers/credit"
	hirecontrollers "github.com/casamarket/casa-backend/api/controllers/hires"
	ordercontrollers "github.com/casamarket/casa-backend/api/controllers/orders"
	ratingcontrollers "github.com/casamarket/casa-backend/api/controllers/ratings"
	returncontrollers "github.com/casamarket/casa-backend/api/controllers/returns"
	"github.com/casamarket/casa-backend/api/middleware"
	"github.com/casamarket/casa-backend/internal/checkout"
	"github.com/casamarket/casa-backend/internal/hires"
	"github.com/casamarket/casa-backend/internal/ledger"
	"github.com/casamarket/casa-backend/internal/orders"
	"github.com/casamarket/casa-backend/internal/ratings"
	"github.com/casamarket/casa-backend/internal/returns"
	"github.com/casamarket/casa-backend/pkg/auth/session"
	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/metrics"
	pkgredis "github.com/casamarket/casa-backend/pkg/redis"
)

type sessionManager interface {
	session.RevocationChecker
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// redisStore is what the router needs from redis: readiness, idempotency
// records and rate-limit counters.
type redisStore interface {
	controllers.Pinger
	pkgredis.IdempotencyStore
	pkgredis.RateLimiter
}

type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTP
	DB          controllers.Pinger
	Redis       redisStore
	Sessions    sessionManager

	Checkout checkout.Service
	Orders   orders.Service
	Ledger   ledger.Service
	Returns  returns.Service
	Ratings  ratings.Service
	Hires    hires.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	var (
		idempotencyStore pkgredis.IdempotencyStore
		limiter          pkgredis.RateLimiter
		readiness        = map[string]controllers.Pinger{"db": d.DB}
	)
	if d.Redis != nil {
		idempotencyStore = d.Redis
		limiter = d.Redis
		readiness["redis"] = d.Redis
	}
	var revocations session.RevocationChecker
	if d.Sessions != nil {
		revocations = d.Sessions
	}

	placementPolicy := middleware.NewRateLimitPolicy("order_placement", cfg.RateLimit.Window, cfg.RateLimit.OrderPlacementMax)
	uploadPolicy := middleware.NewRateLimitPolicy("evidence_upload", cfg.RateLimit.Window, cfg.RateLimit.EvidenceUploadMax)

	customer := middleware.RequireRole(logg, enums.RoleCustomer)
	seller := middleware.RequireRole(logg, enums.RoleSeller)
	parties := middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleSeller)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, revocations, logg))

		r.Post("/auth/logout", controllers.AuthLogout(d.Sessions, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(
				customer,
				middleware.RateLimit(placementPolicy, limiter, logg),
				middleware.Idempotency(idempotencyStore, cfg.Idempotency.OrderPlacementTTL, logg),
			).Post("/", ordercontrollers.Place(d.Checkout, logg))
			r.With(customer).Post("/quote", ordercontrollers.Quote(d.Checkout, logg))
			r.With(customer).Get("/", ordercontrollers.List(d.Orders, logg))
			// Sellers and admins also read orders; the service scopes what they see.
			r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
		})

		r.Route("/order-items/{itemId}", func(r chi.Router) {
			r.Use(customer)
			r.Post("/cancel", ordercontrollers.CancelItem(d.Orders, logg))
			r.Post("/returns", returncontrollers.Request(d.Returns, logg))
			r.Post("/rating", ratingcontrollers.Submit(d.Ratings, logg))
		})

		r.With(customer, middleware.RateLimit(uploadPolicy, limiter, logg)).
			Post("/returns/evidence", returncontrollers.UploadEvidence(d.Returns, cfg.GCS.MaxUploadMB, logg))
		r.Get("/returns/{returnId}", returncontrollers.Detail(d.Returns, logg))

		r.With(customer).Get("/credit", creditcontrollers.Balance(d.Ledger, logg))

		r.Get("/products/{productId}/ratings", ratingcontrollers.ProductSummary(d.Ratings, logg))
		r.Get("/sellers/{sellerId}/ratings", ratingcontrollers.SellerSummary(d.Ratings, logg))

		r.Route("/seller", func(r chi.Router) {
			r.Use(seller)
			r.Get("/order-items", ordercontrollers.SellerItems(d.Orders, logg))
			r.Patch("/order-items/{itemId}/status", ordercontrollers.UpdateItemStatus(d.Orders, logg))
			r.Get("/returns", returncontrollers.SellerList(d.Returns, logg))
			r.Post("/returns/{returnId}/approve", returncontrollers.SellerApprove(d.Returns, logg))
			r.Post("/returns/{returnId}/reject", returncontrollers.SellerReject(d.Returns, logg))
		})

		r.Route("/hires", func(r chi.Router) {
			r.Use(parties)
			r.With(customer).Post("/", hirecontrollers.Create(d.Hires, logg))
			r.Get("/", hirecontrollers.List(d.Hires, logg))
			r.With(seller).Post("/{hireId}/accept", hirecontrollers.Accept(d.Hires, logg))
			r.With(seller).Post("/{hireId}/reject", hirecontrollers.Reject(d.Hires, logg))
			r.With(seller).Post("/{hireId}/complete", hirecontrollers.Complete(d.Hires, logg))
			r.Post("/{hireId}/ratings", hirecontrollers.Rate(d.Hires, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, revocations, logg),
			middleware.RequireRole(logg, enums.RoleAdmin),
		)
		r.Get("/returns", returncontrollers.AdminList(d.Returns, logg))
		r.Post("/returns/{returnId}/approve", returncontrollers.AdminApprove(d.Returns, logg))
		r.Post("/returns/{returnId}/reject", returncontrollers.AdminReject(d.Returns, logg))
	})

	return r
}
