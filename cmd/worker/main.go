package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/townielabs/townie-backend/internal/catalog"
	orderconsumer "github.com/townielabs/townie-backend/internal/consumers/orders"
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
	"github.com/townielabs/townie-backend/pkg/outbox/idempotency"
	"github.com/townielabs/townie-backend/pkg/pubsub"
	"github.com/townielabs/townie-backend/pkg/redis"
)

// Processed-event marks outlive any realistic redelivery window.
const consumerIdempotencyTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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
			logg.Error(context.Background(), "error closing redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	shopsRepo := shops.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	settlementRepo := settlement.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

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

	idempotencyManager, err := idempotency.NewManager(redisClient, consumerIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to build idempotency manager", err)
		os.Exit(1)
	}

	orderConsumer, err := orderconsumer.NewConsumer(orderconsumer.ConsumerParams{
		Settlements:  settlementService,
		Invoices:     invoiceService,
		Orders:       orderService,
		Shops:        shopsRepo,
		Notifier:     notificationService,
		Subscription: pubsubClient.OrdersSubscription(),
		Idempotency:  idempotencyManager,
		Logger:       logg,
		Metrics:      orderMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build order consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		PubSub:        pubsubClient,
		OrderConsumer: orderConsumer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "worker",
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}
