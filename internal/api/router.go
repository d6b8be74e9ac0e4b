package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/eventbooker/event-booker/docs"
	"github.com/eventbooker/event-booker/internal/api/handler"
	"github.com/eventbooker/event-booker/internal/api/middleware"
	"github.com/eventbooker/event-booker/internal/core/auth"
	"github.com/eventbooker/event-booker/internal/core/domain"
	"github.com/eventbooker/event-booker/internal/core/ports"
	"github.com/eventbooker/event-booker/internal/infrastructure/http/handlers"
)

// Deps is everything the router needs to build its handlers.
type Deps struct {
	Log          zerolog.Logger
	Pipeline     *auth.Pipeline
	AuthService  ports.AuthService
	EventService ports.EventService
	Cookie       handler.CookieConfig
	Probes       map[string]handlers.Probe
	// Registry receives the HTTP metrics. Nil selects the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "eventbooker",
		Registerer: registerer,
	}))

	// --- Access guards ---
	authn := middleware.Auth(d.Pipeline, d.Cookie.Name)
	optional := middleware.OptionalAuth(d.Pipeline, d.Cookie.Name)
	adminOnly := middleware.RBAC(d.Pipeline, domain.RoleAdmin)
	ownsUser := middleware.Ownership(d.Pipeline, middleware.OwnerFromParam("userId"))

	authHandler := handler.NewAuthHandler(d.AuthService, d.Cookie)
	userHandler := handler.NewUserHandler(d.AuthService)
	eventHandler := handler.NewEventHandler(d.EventService)
	ownsEvent := middleware.Ownership(d.Pipeline, eventHandler.EventOwner())
	ownsBooking := middleware.Ownership(d.Pipeline, eventHandler.BookingOwner())

	api := e.Group("/api")

	// --- Auth routes ---
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me, authn)

	// --- Users ---
	users := api.Group("/users", authn)
	users.GET("/:userId", userHandler.Get, ownsUser)
	users.PATCH("/:userId", userHandler.UpdateProfile, ownsUser)
	users.PATCH("/:userId/role", userHandler.ChangeRole, adminOnly)
	users.PATCH("/:userId/status", userHandler.SetStatus, adminOnly)

	// --- Events ---
	api.GET("/events", eventHandler.List, optional)
	api.GET("/events/:id", eventHandler.Get)
	api.POST("/events", eventHandler.Create, authn)
	api.PUT("/events/:id", eventHandler.Update, authn, ownsEvent)
	api.DELETE("/events/:id", eventHandler.Delete, authn, ownsEvent)

	// --- Bookings ---
	api.POST("/events/:id/bookings", eventHandler.Book, authn)
	api.GET("/bookings", eventHandler.ListBookings, authn)
	api.DELETE("/bookings/:bookingId", eventHandler.CancelBooking, authn, ownsBooking)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Probes)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
