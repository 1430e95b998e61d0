package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/botmarket-labs/botmarket-backend/api/routes"
	"github.com/botmarket-labs/botmarket-backend/internal/ledger"
	"github.com/botmarket-labs/botmarket-backend/internal/payments"
	"github.com/botmarket-labs/botmarket-backend/internal/registry"
	"github.com/botmarket-labs/botmarket-backend/internal/subscriptions"
	"github.com/botmarket-labs/botmarket-backend/pkg/config"
	"github.com/botmarket-labs/botmarket-backend/pkg/db"
	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
	"github.com/botmarket-labs/botmarket-backend/pkg/metrics"
	"github.com/botmarket-labs/botmarket-backend/pkg/migrate"
	"github.com/botmarket-labs/botmarket-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(promRegistry)

	tokenLedger := ledger.New(cfg.Platform.ChainID)

	registryService, err := registry.NewService(registry.ServiceParams{
		Repo: registry.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create registry service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo: subscriptions.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	paymentRepo := payments.NewRepository(dbClient.DB())
	paymentService, err := payments.NewService(payments.ServiceParams{
		DB:            dbClient,
		Repo:          paymentRepo,
		Catalog:       registryService,
		Subscriptions: subscriptionService,
		Ledger:        tokenLedger,
		EscrowAccount: cfg.Platform.EscrowAddress(),
		Treasury:      cfg.Platform.TreasuryAddress(),
		DefaultFeeBps: cfg.Platform.DefaultFeeBps,
		Metrics:       paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	if err := seedLedgerTokens(context.Background(), paymentService, tokenLedger); err != nil {
		logg.Error(context.Background(), "failed to seed ledger tokens", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"chain_id": cfg.Platform.ChainID,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Registry:      registryService,
			Subscriptions: subscriptionService,
			Payments:      paymentService,
			Ledger:        tokenLedger,
			Metrics:       promRegistry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// seedLedgerTokens makes the supported-token whitelist known to the
// in-process ledger so balances and permits resolve after a restart.
func seedLedgerTokens(ctx context.Context, svc *payments.Service, ldg *ledger.Ledger) error {
	tokens, err := svc.SupportedTokens(ctx)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if _, err := ldg.DeployToken(token.Token, token.Name, token.Symbol, token.Decimals); err != nil {
			return err
		}
	}
	return nil
}
