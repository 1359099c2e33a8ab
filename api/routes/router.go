package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/giftops-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/giftops-backend/api/controllers/admin"
	bulkcontrollers "github.com/angelmondragon/giftops-backend/api/controllers/bulkorders"
	feedbackcontrollers "github.com/angelmondragon/giftops-backend/api/controllers/feedback"
	invoicecontrollers "github.com/angelmondragon/giftops-backend/api/controllers/invoices"
	ordercontrollers "github.com/angelmondragon/giftops-backend/api/controllers/orders"
	stockcontrollers "github.com/angelmondragon/giftops-backend/api/controllers/stockrequests"
	"github.com/angelmondragon/giftops-backend/api/middleware"
	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/analytics"
	"github.com/angelmondragon/giftops-backend/internal/auth"
	"github.com/angelmondragon/giftops-backend/internal/bulkorders"
	"github.com/angelmondragon/giftops-backend/internal/dispatch"
	"github.com/angelmondragon/giftops-backend/internal/feedback"
	"github.com/angelmondragon/giftops-backend/internal/invoices"
	"github.com/angelmondragon/giftops-backend/internal/notifications"
	"github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/internal/shipping"
	"github.com/angelmondragon/giftops-backend/internal/stockrequests"
	"github.com/angelmondragon/giftops-backend/internal/tasks"
	"github.com/angelmondragon/giftops-backend/internal/tracking"
	"github.com/angelmondragon/giftops-backend/internal/users"
	"github.com/angelmondragon/giftops-backend/pkg/auth/session"
	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/giftops-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface talks to. Nil services
// are not allowed; nil health pingers are skipped.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    session.AccessSessionChecker
	Idempotency pkgredis.ResponseCache
	Limiter     pkgredis.RateLimiter
	Health      map[string]controllers.Pinger

	Auth          auth.Service
	Users         users.Service
	Products      products.Service
	Shipping      shipping.Service
	Orders        orders.Service
	Tracking      tracking.Service
	StockRequests stockrequests.Service
	Invoices      invoices.Service
	Feedback      feedback.Service
	BulkOrders    bulkorders.Service
	Tasks         tasks.Service
	Dispatch      dispatch.Service
	Notifications notifications.Service
	Analytics     analytics.Service
}

func NewRouter(d Dependencies) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
		chimw.RequestSize(validators.MaxBodyBytes),
	)

	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	trackPolicy := middleware.NewRateLimitPolicy("track", cfg.Tracking.Window, cfg.Tracking.IPLimit, 0)
	idempotent := middleware.Idempotency(d.Idempotency, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Health))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.RateLimit(trackPolicy, d.Limiter, logg)).
		Get("/track/orders/{orderId}", controllers.TrackOrder(d.Tracking, logg))

	r.Route("/api/public", func(r chi.Router) {
		r.With(middleware.RateLimit(registerPolicy, d.Limiter, logg), idempotent).
			Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.Get("/products", controllers.PublicProducts(d.Products, logg))
		r.Get("/products/{productId}", controllers.PublicProduct(d.Products, logg))
		r.Get("/shipping/regions", controllers.PublicShippingRegions(d.Shipping, logg))
		r.Get("/shipping/methods", controllers.PublicShippingMethods(d.Shipping, logg))
		r.Get("/shipping/quote", controllers.PublicShippingQuote(d.Shipping, logg))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, d.Limiter, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(idempotent)

		r.Get("/me", controllers.Me(d.Auth, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Checkout(d.Orders, logg))
			r.Get("/", ordercontrollers.List(d.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(d.Orders, logg))
			r.Get("/{orderId}/history", ordercontrollers.History(d.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(d.Orders, logg))
			r.Post("/{orderId}/rating", ordercontrollers.Rate(d.Orders, logg))
			r.Post("/{orderId}/transition", ordercontrollers.Transition(d.Orders, logg))
		})
		r.Post("/uploads/customization-image", controllers.ImageUploadURL(d.Products, products.UploadCustomizationImage, logg))

		r.Route("/feedback", func(r chi.Router) {
			r.Post("/", feedbackcontrollers.CreateThread(d.Feedback, logg))
			r.Get("/", feedbackcontrollers.List(d.Feedback, logg))
			r.Get("/{threadId}/messages", feedbackcontrollers.Messages(d.Feedback, logg))
			r.Post("/{threadId}/reply", feedbackcontrollers.Reply(d.Feedback, logg))
			r.Post("/{threadId}/close", feedbackcontrollers.Close(d.Feedback, logg))
			r.Post("/{threadId}/reopen", feedbackcontrollers.Reopen(d.Feedback, logg))
		})

		r.Route("/bulk-orders", func(r chi.Router) {
			r.Post("/", bulkcontrollers.Submit(d.BulkOrders, logg))
			r.Get("/", bulkcontrollers.List(d.BulkOrders, logg))
			r.Get("/{bulkOrderId}", bulkcontrollers.Detail(d.BulkOrders, logg))
			r.Post("/{bulkOrderId}/confirm", bulkcontrollers.Confirm(d.BulkOrders, logg))
			r.Post("/{bulkOrderId}/cancel", bulkcontrollers.Cancel(d.BulkOrders, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})

		r.Get("/tasks", controllers.ListTasks(d.Tasks, logg))
		r.Post("/tasks/{taskId}/status", controllers.UpdateTaskStatus(d.Tasks, logg))

		r.Route("/dispatch", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleDispatchManager, enums.RoleAdmin))
			r.Get("/orders", ordercontrollers.List(d.Orders, logg))
			r.Post("/orders/{orderId}/assign", ordercontrollers.AssignRider(d.Orders, logg))
			r.Post("/orders/{orderId}/color", ordercontrollers.SetColor(d.Orders, logg))
			r.Post("/orders/{orderId}/route", controllers.DispatchRoute(d.Dispatch, logg))
			r.Get("/riders", controllers.DispatchRiders(d.Dispatch, logg))
			r.Post("/tasks", controllers.CreateTask(d.Tasks, logg))
			r.Get("/exports/orders.csv", ordercontrollers.Export(d.Orders, logg))
		})

		r.Route("/rider", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleRider))
			r.Get("/orders", ordercontrollers.List(d.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(d.Orders, logg))
			r.Post("/orders/{orderId}/route", controllers.DispatchRoute(d.Dispatch, logg))
		})

		r.Route("/finance", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleFinanceManager, enums.RoleAdmin))
			r.Post("/orders/{orderId}/payment", ordercontrollers.UpdatePayment(d.Orders, logg))
			r.Get("/stock-requests", stockcontrollers.List(d.StockRequests, logg))
			r.Get("/stock-requests/{requestId}", stockcontrollers.Detail(d.StockRequests, logg))
			r.Post("/stock-requests/{requestId}/award", stockcontrollers.Award(d.StockRequests, logg))
			r.Post("/stock-requests/{requestId}/reject", stockcontrollers.Reject(d.StockRequests, logg))
			r.Get("/invoices", invoicecontrollers.List(d.Invoices, logg))
			r.Get("/invoices/{invoiceId}", invoicecontrollers.Detail(d.Invoices, logg))
			r.Post("/invoices/{invoiceId}/approve", invoicecontrollers.Approve(d.Invoices, logg))
			r.Post("/invoices/{invoiceId}/reject", invoicecontrollers.Reject(d.Invoices, logg))
			r.Post("/invoices/{invoiceId}/pay", invoicecontrollers.MarkPaid(d.Invoices, logg))
			r.Get("/analytics/summary", controllers.AnalyticsSummary(d.Analytics, logg))
			r.Route("/exports", func(r chi.Router) {
				r.Get("/orders.csv", ordercontrollers.Export(d.Orders, logg))
				r.Get("/stock-requests.csv", stockcontrollers.Export(d.StockRequests, logg))
				r.Get("/invoices.csv", invoicecontrollers.Export(d.Invoices, logg))
			})
		})

		r.Route("/supplier", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleSupplier))
			r.Get("/stock-requests", stockcontrollers.List(d.StockRequests, logg))
			r.Get("/stock-requests/{requestId}", stockcontrollers.Detail(d.StockRequests, logg))
			r.Post("/stock-requests/{requestId}/bids", stockcontrollers.SubmitBid(d.StockRequests, logg))
			r.Post("/stock-requests/{requestId}/acknowledge", stockcontrollers.Acknowledge(d.StockRequests, logg))
			r.Post("/invoices", invoicecontrollers.Create(d.Invoices, logg))
			r.Get("/invoices", invoicecontrollers.List(d.Invoices, logg))
			r.Get("/invoices/{invoiceId}", invoicecontrollers.Detail(d.Invoices, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleInventoryManager, enums.RoleAdmin))
			r.Post("/stock-requests", stockcontrollers.Create(d.StockRequests, logg))
			r.Get("/stock-requests", stockcontrollers.List(d.StockRequests, logg))
			r.Get("/stock-requests/{requestId}", stockcontrollers.Detail(d.StockRequests, logg))
			r.Post("/stock-requests/{requestId}/cancel", stockcontrollers.Cancel(d.StockRequests, logg))
			r.Post("/stock-requests/{requestId}/receive", stockcontrollers.Receive(d.StockRequests, logg))
			r.Get("/exports/stock-requests.csv", stockcontrollers.Export(d.StockRequests, logg))
			mountProducts(r, d)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleAdmin))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", admincontrollers.ListUsers(d.Users, logg))
				r.Post("/", admincontrollers.CreateStaff(d.Users, logg))
				r.Get("/{userId}", admincontrollers.GetUser(d.Users, logg))
				r.Post("/{userId}/approve", admincontrollers.ApproveUser(d.Users, logg))
				r.Post("/{userId}/reject", admincontrollers.RejectUser(d.Users, logg))
				r.Post("/{userId}/disable", admincontrollers.DisableUser(d.Users, logg))
				r.Post("/{userId}/enable", admincontrollers.EnableUser(d.Users, logg))
				r.Post("/{userId}/role", admincontrollers.ChangeRole(d.Users, logg))
			})

			mountProducts(r, d)

			r.Route("/customization-groups", func(r chi.Router) {
				r.Get("/", admincontrollers.ListGroups(d.Products, logg))
				r.Post("/", admincontrollers.CreateGroup(d.Products, logg))
				r.Put("/{groupId}", admincontrollers.UpdateGroup(d.Products, logg))
				r.Delete("/{groupId}", admincontrollers.DeleteGroup(d.Products, logg))
			})

			r.Route("/shipping", func(r chi.Router) {
				r.Get("/regions", admincontrollers.ListRegions(d.Shipping, logg))
				r.Post("/regions", admincontrollers.CreateRegion(d.Shipping, logg))
				r.Put("/regions/{regionId}", admincontrollers.UpdateRegion(d.Shipping, logg))
				r.Delete("/regions/{regionId}", admincontrollers.DeactivateRegion(d.Shipping, logg))
				r.Get("/methods", admincontrollers.ListMethods(d.Shipping, logg))
				r.Post("/methods", admincontrollers.CreateMethod(d.Shipping, logg))
				r.Put("/methods/{methodId}", admincontrollers.UpdateMethod(d.Shipping, logg))
				r.Get("/rates", admincontrollers.ListRates(d.Shipping, logg))
				r.Put("/rates", admincontrollers.UpsertRate(d.Shipping, logg))
				r.Delete("/rates/{rateId}", admincontrollers.DeactivateRate(d.Shipping, logg))
			})

			r.Get("/bulk-orders", bulkcontrollers.List(d.BulkOrders, logg))
			r.Post("/bulk-orders/{bulkOrderId}/quote", bulkcontrollers.Quote(d.BulkOrders, logg))
			r.Post("/bulk-orders/{bulkOrderId}/reject", bulkcontrollers.Reject(d.BulkOrders, logg))

			r.Route("/exports", func(r chi.Router) {
				r.Get("/users.csv", admincontrollers.ExportUsers(d.Users, logg))
				r.Get("/orders.csv", ordercontrollers.Export(d.Orders, logg))
				r.Get("/stock-requests.csv", stockcontrollers.Export(d.StockRequests, logg))
				r.Get("/invoices.csv", invoicecontrollers.Export(d.Invoices, logg))
			})
		})
	})

	return r
}

func mountProducts(r chi.Router, d Dependencies) {
	logg := d.Logger
	r.Route("/products", func(r chi.Router) {
		r.Get("/", admincontrollers.ListProducts(d.Products, logg))
		r.Post("/", admincontrollers.CreateProduct(d.Products, logg))
		r.Post("/image-upload", controllers.ImageUploadURL(d.Products, products.UploadProductImage, logg))
		r.Get("/{productId}", admincontrollers.GetProduct(d.Products, logg))
		r.Put("/{productId}", admincontrollers.UpdateProduct(d.Products, logg))
		r.Delete("/{productId}", admincontrollers.ArchiveProduct(d.Products, logg))
	})
}
