package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/townielabs/townie-backend/api/controllers"
	"github.com/townielabs/townie-backend/api/middleware"
	"github.com/townielabs/townie-backend/internal/address"
	"github.com/townielabs/townie-backend/internal/auth"
	"github.com/townielabs/townie-backend/internal/catalog"
	"github.com/townielabs/townie-backend/internal/coupons"
	"github.com/townielabs/townie-backend/internal/invoice"
	"github.com/townielabs/townie-backend/internal/notifications"
	"github.com/townielabs/townie-backend/internal/orders"
	"github.com/townielabs/townie-backend/internal/settlement"
	"github.com/townielabs/townie-backend/internal/shops"
	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth          auth.Service
	Addresses     address.Service
	Shops         shops.Service
	Catalog       catalog.Service
	Coupons       coupons.Service
	Orders        orders.Service
	Settlements   settlement.Service
	SettlementRow controllers.SettlementSource
	Invoices      invoice.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.Window,
		cfg.AuthRateLimit.IPLimit,
		cfg.AuthRateLimit.IdentityLimit,
	)
	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.Window,
		cfg.AuthRateLimit.IPLimit,
		cfg.AuthRateLimit.IdentityLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg)).Post("/request-otp", controllers.AuthRequestOTP(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(otpPolicy, redisClient, logg)).Post("/verify-otp", controllers.AuthVerifyOTP(svcs.Auth, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AdminAuthLogin(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, logg))

		r.Get("/params", controllers.StorefrontParams(svcs.Shops, logg))

		r.Route("/shops", func(r chi.Router) {
			r.Get("/nearby", controllers.NearbyShops(svcs.Shops, logg))
			r.Get("/{shopId}", controllers.ShopDetail(svcs.Shops, svcs.Catalog, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(svcs.Addresses, logg))
			r.Post("/", controllers.AddressCreate(svcs.Addresses, logg))
			r.Put("/{addressId}", controllers.AddressUpdate(svcs.Addresses, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(svcs.Addresses, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(svcs.Orders, logg))
			r.Get("/", controllers.ListMyOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		// Shop registration is open to any authenticated user; the vendor
		// role only exists once a shop has been approved.
		r.Post("/vendor/shops", controllers.VendorRegisterShop(svcs.Shops, logg))

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole("vendor", logg))

			r.Get("/shop", controllers.VendorShopProfile(svcs.Shops, logg))
			r.Put("/shop/availability", controllers.VendorSetAvailability(svcs.Shops, logg))
			r.Put("/delivery-option", controllers.VendorUpsertDeliveryOption(svcs.Shops, logg))
			r.Get("/delivery-option", controllers.VendorDeliveryOption(svcs.Shops, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.VendorListProducts(svcs.Catalog, logg))
				r.Post("/", controllers.VendorCreateProduct(svcs.Catalog, logg))
				r.Patch("/{productId}", controllers.VendorUpdateProduct(svcs.Catalog, logg))
				r.Delete("/{productId}", controllers.VendorDeactivateProduct(svcs.Catalog, logg))
			})

			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", controllers.VendorListCoupons(svcs.Coupons, logg))
				r.Post("/", controllers.VendorCreateCoupon(svcs.Coupons, logg))
				r.Delete("/{couponId}", controllers.VendorDeactivateCoupon(svcs.Coupons, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.VendorListOrders(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.VendorOrderDetail(svcs.Orders, logg))
				r.Post("/{orderId}/accept", controllers.VendorAcceptOrder(svcs.Orders, logg))
				r.Post("/{orderId}/reject", controllers.VendorRejectOrder(svcs.Orders, logg))
				r.Post("/{orderId}/ready", controllers.VendorMarkReady(svcs.Orders, logg))
				r.Post("/{orderId}/dispatch", controllers.VendorDispatchOrder(svcs.Orders, logg))
				r.Post("/{orderId}/deliver", controllers.VendorDeliverOrder(svcs.Orders, logg))
			})

			r.Get("/settlements", controllers.VendorSettlements(svcs.Settlements, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(redisClient, logg))

		r.Route("/shops", func(r chi.Router) {
			r.Get("/pending", controllers.AdminPendingShops(svcs.Shops, logg))
			r.Post("/{shopId}/moderate", controllers.AdminModerateShop(svcs.Shops, logg))
		})
		r.Get("/orders", controllers.AdminListOrders(svcs.Orders, logg))
		r.Get("/orders/{orderId}", controllers.AdminOrderDetail(svcs.Orders, svcs.SettlementRow, svcs.Invoices, logg))
	})

	return r
}
