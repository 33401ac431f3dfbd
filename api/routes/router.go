package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forkline/forkline-backend/api/controllers"
	webhookcontrollers "github.com/forkline/forkline-backend/api/controllers/webhooks"
	"github.com/forkline/forkline-backend/api/middleware"
	"github.com/forkline/forkline-backend/internal/auth"
	"github.com/forkline/forkline-backend/internal/dispatch"
	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/internal/points"
	"github.com/forkline/forkline-backend/internal/reservations"
	deliverywebhook "github.com/forkline/forkline-backend/internal/webhooks/delivery"
	paymentwebhook "github.com/forkline/forkline-backend/internal/webhooks/payment"
	"github.com/forkline/forkline-backend/pkg/config"
	"github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/logger"
	"github.com/forkline/forkline-backend/pkg/metrics"
	"github.com/forkline/forkline-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs. Webhook routes sit
// outside the authenticated group because providers sign rather than log in.
type RouterParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   redis.Pinger
	Metrics http.Handler

	WebhookMetrics *metrics.WebhookMetrics

	AuthService          auth.Service
	OrdersService        orders.Service
	NotificationsService notifications.Service
	PointsService        points.Service
	ReservationsService  reservations.Service
	DispatchService      dispatch.Service

	PaymentWebhookService  *paymentwebhook.Service
	PaymentWebhookGuard    *paymentwebhook.IdempotencyGuard
	DeliveryWebhookService *deliverywebhook.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics)
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(
			p.PaymentWebhookService,
			cfg.Payments.WebhookSecret,
			p.PaymentWebhookGuard,
			p.WebhookMetrics,
			logg,
		))
		r.Route("/deliveries", func(r chi.Router) {
			r.Post("/swiftdrop", webhookcontrollers.SwiftdropWebhook(p.DeliveryWebhookService, p.WebhookMetrics, logg))
			r.Post("/fleetbird", webhookcontrollers.FleetbirdWebhook(p.DeliveryWebhookService, p.WebhookMetrics, logg))
		})
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(p.OrdersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(p.OrdersService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.NotificationsService, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(p.NotificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.NotificationsService, logg))
		})

		r.Route("/points", func(r chi.Router) {
			r.Get("/balance", controllers.PointsBalance(p.PointsService, logg))
			r.Get("/history", controllers.PointsHistory(p.PointsService, logg))
		})

		r.Post("/reservations", controllers.CreateReservation(p.ReservationsService, logg))

		r.Post("/dispatch/sweep", controllers.TriggerDispatchSweep(p.DispatchService, logg))
	})

	return r
}
