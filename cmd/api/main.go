package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/townielabs/townie-backend/api/routes"
	"github.com/townielabs/townie-backend/internal/address"
	"github.com/townielabs/townie-backend/internal/auth"
	"github.com/townielabs/townie-backend/internal/catalog"
	"github.com/townielabs/townie-backend/internal/coupons"
	"github.com/townielabs/townie-backend/internal/invoice"
	"github.com/townielabs/townie-backend/internal/notifications"
	"github.com/townielabs/townie-backend/internal/orders"
	"github.com/townielabs/townie-backend/internal/settlement"
	"github.com/townielabs/townie-backend/internal/shops"
	"github.com/townielabs/townie-backend/internal/users"
	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/metrics"
	"github.com/townielabs/townie-backend/pkg/migrate"
	"github.com/townielabs/townie-backend/pkg/outbox"
	"github.com/townielabs/townie-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	cfg.Service.Kind = "api"

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

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	shopsRepo := shops.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	settlementRepo := settlement.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	shopService, err := shops.NewService(shopsRepo, dbClient, outboxService, cfg.Pricing, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build shop service", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build catalog service", err)
		os.Exit(1)
	}
	couponService, err := coupons.NewService(coupons.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build coupon service", err)
		os.Exit(1)
	}
	orderService, err := orders.NewService(ordersRepo, shopsRepo, catalogService, couponService, dbClient, outboxService, cfg.Pricing, logg, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build order service", err)
		os.Exit(1)
	}
	settlementService, err := settlement.NewService(settlementRepo, ordersRepo, shopsRepo, cfg.Pricing, logg, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build settlement service", err)
		os.Exit(1)
	}
	invoiceService, err := invoice.NewService(invoice.NewRepository(dbClient.DB()), ordersRepo, settlementRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build invoice service", err)
		os.Exit(1)
	}
	notifier, err := notifications.NewNotifier(cfg.Notify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build sms notifier", err)
		os.Exit(1)
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), usersRepo, notifier, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build notification service", err)
		os.Exit(1)
	}
	addressService, err := address.NewService(address.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build address service", err)
		os.Exit(1)
	}
	authService, err := auth.NewService(auth.ServiceParams{
		Users:      usersRepo,
		OTPStore:   redisClient,
		SMS:        notifier,
		Shops:      shopsRepo,
		JWTConfig:  cfg.JWT,
		AuthConfig: cfg.Auth,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build auth service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
		Auth:          authService,
		Addresses:     addressService,
		Shops:         shopService,
		Catalog:       catalogService,
		Coupons:       couponService,
		Orders:        orderService,
		Settlements:   settlementService,
		SettlementRow: settlementRepo,
		Invoices:      invoiceService,
		Notifications: notificationService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "api",
		"addr":        addr,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
