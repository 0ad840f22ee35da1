package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digitos-team/masala-software/api/controllers"
	ordercontrollers "github.com/digitos-team/masala-software/api/controllers/orders"
	paymentcontrollers "github.com/digitos-team/masala-software/api/controllers/payments"
	"github.com/digitos-team/masala-software/api/middleware"
	"github.com/digitos-team/masala-software/internal/notifications"
	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/internal/payments"
	product "github.com/digitos-team/masala-software/internal/products"
	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/redis"
)

// Dependencies are the services the router mounts. Redis may be nil, which
// disables idempotency replay and write throttling.
type Dependencies struct {
	DB            controllers.Pinger
	Redis         *redis.Client
	Orders        orders.Service
	Payments      payments.Service
	Products      product.Service
	Notifications notifications.Service
	Metrics       http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)
	if cfg.HTTP.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.HTTP.RequestTimeout))
	}

	readiness := map[string]controllers.Pinger{"database": deps.DB}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	adminOnly := middleware.RequireRole(logg, enums.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if deps.Redis != nil {
			r.Use(
				middleware.WriteRateLimit(cfg.RateLimit, deps.Redis, logg),
				middleware.Idempotency(deps.Redis, logg),
			)
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/stats", ordercontrollers.Stats(deps.Orders, logg))
				r.Get("/revenue", ordercontrollers.Revenue(deps.Orders, logg))
				r.Get("/top-products", ordercontrollers.TopProducts(deps.Orders, logg))
				r.Get("/user/{userId}", ordercontrollers.ByUser(deps.Orders, logg))
				r.Patch("/bulk/status", ordercontrollers.BulkUpdateStatus(deps.Orders, logg))
				r.Patch("/bulk/cancel", ordercontrollers.BulkCancel(deps.Orders, logg))
			})

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
				// participants may edit; the service checks the order's parties
				r.Patch("/", ordercontrollers.Update(deps.Orders, logg))
				r.With(adminOnly).Delete("/", ordercontrollers.Delete(deps.Orders, logg))
				// suppliers are checked per order by the service
				r.Patch("/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
				r.Post("/cancel", ordercontrollers.Cancel(deps.Orders, logg))
				r.Post("/return", ordercontrollers.Return(deps.Orders, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", paymentcontrollers.Create(deps.Payments, logg))
			r.Get("/", paymentcontrollers.List(deps.Payments, logg))
			r.Get("/search", paymentcontrollers.Search(deps.Payments, logg))
			r.Get("/order/{orderId}", paymentcontrollers.ByOrder(deps.Payments, logg))
			r.Get("/verify/{transactionId}", paymentcontrollers.Verify(deps.Payments, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/stats", paymentcontrollers.Stats(deps.Payments, logg))
				r.Get("/revenue", paymentcontrollers.Revenue(deps.Payments, logg))
				r.Get("/history", paymentcontrollers.History(deps.Payments, logg))
				r.Post("/bulk", paymentcontrollers.BulkCreate(deps.Payments, logg))
				r.Patch("/bulk/status", paymentcontrollers.BulkUpdateStatus(deps.Payments, logg))
			})

			r.Route("/{paymentId}", func(r chi.Router) {
				r.Get("/", paymentcontrollers.Detail(deps.Payments, logg))
				r.With(adminOnly).Patch("/", paymentcontrollers.Update(deps.Payments, logg))
				r.With(adminOnly).Delete("/", paymentcontrollers.Delete(deps.Payments, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Products, logg))
			r.Get("/stock/me", controllers.MyStock(deps.Products, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.Products, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Patch("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Patch("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}
