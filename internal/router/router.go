package router // package router defines how HTTP routes are registered for the API

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Handlers bundles the handlers served by the API.
type Handlers struct {
	Health   echo.HandlerFunc
	Tickets  *handler.TicketHandler
	Movies   *handler.MovieHandler
	Sessions *handler.SessionHandler
	Users    *handler.UserHandler
}

// Options configures the echo instance built by New.
type Options struct {
	JWTSecret      string
	RequestTimeout time.Duration
}

// New builds the echo instance: structured error responses, request
// logging, panic recovery, a per-request deadline and every route.
func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(middleware.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestTimeout(opts.RequestTimeout))

	RegisterRoutes(e, h, opts.JWTSecret)
	return e
}

// RegisterRoutes registers the public health check and the authenticated
// /v1 API.  Ticket and watch history endpoints are open to every
// authenticated user; movie and session management requires the MANAGER
// role.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string) {
	if h.Health != nil {
		e.GET("/healthz", h.Health)
	}

	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	tickets := v1.Group("/tickets", middleware.RequireRole(model.RoleCustomer, model.RoleManager))
	tickets.POST("/:sessionId/checkout", h.Tickets.Checkout)
	tickets.POST("/:ticketId/watch", h.Tickets.Watch)

	if h.Users != nil {
		users := v1.Group("/users", middleware.RequireRole(model.RoleCustomer, model.RoleManager))
		users.GET("/watch-history", h.Users.WatchHistory)
	}

	manager := middleware.RequireRole(model.RoleManager)
	movies := v1.Group("/movies", manager)
	movies.POST("", h.Movies.Create)
	movies.POST("/bulk/add", h.Movies.BulkCreate)
	movies.POST("/bulk/delete", h.Movies.BulkDelete)
	movies.PUT("/:movieId", h.Movies.Update)
	movies.DELETE("/:movieId", h.Movies.Delete)

	sessions := v1.Group("/sessions", manager)
	sessions.POST("/:movieId", h.Sessions.Create)
	sessions.PATCH("/:sessionId", h.Sessions.Update)
}
