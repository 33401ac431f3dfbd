package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forkline/forkline-backend/api/routes"
	"github.com/forkline/forkline-backend/internal/auth"
	"github.com/forkline/forkline-backend/internal/dispatch"
	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/internal/points"
	"github.com/forkline/forkline-backend/internal/reservations"
	"github.com/forkline/forkline-backend/internal/users"
	deliverywebhook "github.com/forkline/forkline-backend/internal/webhooks/delivery"
	paymentwebhook "github.com/forkline/forkline-backend/internal/webhooks/payment"
	"github.com/forkline/forkline-backend/pkg/config"
	"github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/delivery"
	"github.com/forkline/forkline-backend/pkg/logger"
	"github.com/forkline/forkline-backend/pkg/mailer"
	"github.com/forkline/forkline-backend/pkg/metrics"
	"github.com/forkline/forkline-backend/pkg/migrate"
	"github.com/forkline/forkline-backend/pkg/redis"
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

	ordersRepo := orders.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(usersRepo, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	pointsService, err := points.NewService(points.NewRepository(dbClient.DB()), cfg.Points)
	if err != nil {
		logg.Error(context.Background(), "failed to create points service", err)
		os.Exit(1)
	}

	reservationsService, err := reservations.NewService(reservations.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create reservations service", err)
		os.Exit(1)
	}

	courier, err := newCourierClient(cfg.Delivery)
	if err != nil {
		logg.Error(context.Background(), "failed to create courier client", err)
		os.Exit(1)
	}

	dispatchService, err := dispatch.NewService(ordersRepo, courier, notificationsService, cfg.Delivery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	var mailClient mailer.Sender
	if strings.TrimSpace(cfg.Mailer.APIKey) != "" {
		client, err := mailer.NewClient(cfg.Mailer)
		if err != nil {
			logg.Error(context.Background(), "failed to create mail client", err)
			os.Exit(1)
		}
		mailClient = client
	} else {
		logg.Warn(context.Background(), "mailer api key not set, confirmation emails disabled")
	}

	paymentWebhookService, err := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		OrdersRepo:        ordersRepo,
		UsersRepo:         usersRepo,
		Points:            pointsService,
		Notifications:     notificationsService,
		Mailer:            mailClient,
		TransactionRunner: dbClient,
		Logger:            logg,
		CancellationGrace: cfg.Orders.CancellationGrace,
		DispatchDelay:     cfg.Delivery.DispatchDelay,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment webhook service", err)
		os.Exit(1)
	}

	paymentWebhookGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, cfg.Payments.IdempotencyTTL, "payment-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create payment webhook guard", err)
		os.Exit(1)
	}

	deliveryWebhookService, err := deliverywebhook.NewService(deliverywebhook.ServiceParams{
		OrdersRepo:        ordersRepo,
		Notifications:     notificationsService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery webhook service", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:                 cfg,
			Logger:                 logg,
			DB:                     dbClient,
			Redis:                  redisClient,
			Metrics:                promhttp.Handler(),
			WebhookMetrics:         webhookMetrics,
			AuthService:            authService,
			OrdersService:          ordersService,
			NotificationsService:   notificationsService,
			PointsService:          pointsService,
			ReservationsService:    reservationsService,
			DispatchService:        dispatchService,
			PaymentWebhookService:  paymentWebhookService,
			PaymentWebhookGuard:    paymentWebhookGuard,
			DeliveryWebhookService: deliveryWebhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// newCourierClient picks the configured dispatch provider. Webhook ingestion
// accepts callbacks from every provider regardless of this choice.
func newCourierClient(cfg config.DeliveryConfig) (delivery.Dispatcher, error) {
	switch cfg.Provider {
	case "fleetbird":
		opts := []delivery.FleetbirdOption{}
		if cfg.FleetbirdBaseURL != "" {
			opts = append(opts, delivery.WithFleetbirdBaseURL(cfg.FleetbirdBaseURL))
		}
		return delivery.NewFleetbirdClient(cfg.FleetbirdAPIKey, cfg.RequestTimeout, opts...)
	default:
		opts := []delivery.SwiftdropOption{}
		if cfg.SwiftdropBaseURL != "" {
			opts = append(opts, delivery.WithSwiftdropBaseURL(cfg.SwiftdropBaseURL))
		}
		return delivery.NewSwiftdropClient(cfg.SwiftdropAPIKey, cfg.RequestTimeout, opts...)
	}
}
