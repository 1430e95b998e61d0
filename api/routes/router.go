package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/botmarket-labs/botmarket-backend/api/controllers"
	"github.com/botmarket-labs/botmarket-backend/api/middleware"
	"github.com/botmarket-labs/botmarket-backend/internal/ledger"
	paymentsvc "github.com/botmarket-labs/botmarket-backend/internal/payments"
	registrysvc "github.com/botmarket-labs/botmarket-backend/internal/registry"
	subscriptionsvc "github.com/botmarket-labs/botmarket-backend/internal/subscriptions"
	"github.com/botmarket-labs/botmarket-backend/pkg/config"
	"github.com/botmarket-labs/botmarket-backend/pkg/enums"
	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
	pkgredis "github.com/botmarket-labs/botmarket-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the router depends on.
type RedisStore interface {
	pkgredis.IdempotencyStore
	Ping(context.Context) error
}

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         RedisStore
	Registry      *registrysvc.Service
	Subscriptions *subscriptionsvc.Service
	Payments      *paymentsvc.Service
	Ledger        *ledger.Ledger
	Metrics       prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    p.DB,
			"redis": p.Redis,
		}))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Catalog and platform reads need no credentials.
		r.Get("/bots", controllers.ListBots(p.Registry, logg))
		r.Get("/bots/{botId}", controllers.GetBot(p.Registry, logg))
		r.Get("/tokens", controllers.TokenList(p.Payments, logg))
		r.Get("/platform/fee", controllers.PlatformFee(p.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(p.Redis, logg))

			r.Post("/bots", controllers.RegisterBot(p.Registry, logg))
			r.Get("/bots/mine", controllers.MyBots(p.Registry, logg))
			r.Post("/bots/{botId}/status", controllers.SetBotStatus(p.Registry, logg))
			r.Get("/developers/me", controllers.DeveloperStatus(p.Registry, logg))

			r.Route("/subscriptions/{botId}", func(r chi.Router) {
				r.Get("/", controllers.SubscriptionFetch(p.Subscriptions, logg))
				r.Get("/status", controllers.SubscriptionStatus(p.Subscriptions, logg))
				r.Post("/cancel", controllers.SubscriptionCancel(p.Subscriptions, logg))
			})

			r.Post("/payments", controllers.PaymentProcess(p.Payments, logg))
			r.Post("/payments/permit", controllers.PaymentProcessWithPermit(p.Payments, logg))
			r.Get("/payments/history", controllers.PaymentHistory(p.Payments, logg))
			r.Get("/payments/{botId}", controllers.PaymentStatus(p.Payments, logg))

			r.Route("/balances/{token}", func(r chi.Router) {
				r.Get("/", controllers.BalanceFetch(p.Payments, logg))
				r.Post("/withdraw", controllers.BalanceWithdraw(p.Payments, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Post("/tokens", controllers.AdminTokenAdd(p.Payments, p.Ledger, logg))
		r.Delete("/tokens/{token}", controllers.AdminTokenRemove(p.Payments, logg))

		r.Put("/platform/fee", controllers.AdminPlatformFeeUpdate(p.Payments, logg))
		r.Route("/platform/fees/{token}", func(r chi.Router) {
			r.Get("/", controllers.AdminPlatformFeeBalance(p.Payments, logg))
			r.Post("/withdraw", controllers.AdminPlatformFeeWithdraw(p.Payments, logg))
		})

		r.Route("/payments/{wallet}/{botId}", func(r chi.Router) {
			r.Post("/finalize", controllers.AdminFinalizePayment(p.Payments, logg))
			r.Post("/refund", controllers.AdminRefundPayment(p.Payments, logg))
		})
	})

	if !cfg.App.IsProd() {
		r.Route("/api/dev/v1", func(r chi.Router) {
			r.Post("/token", controllers.DevIssueToken(cfg, logg))
			if cfg.FeatureFlags.DevFaucet {
				r.Post("/faucet/mint", controllers.DevFaucetMint(p.Ledger, logg))
			}
		})
	}

	return r
}
