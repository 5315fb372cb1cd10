package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/vitaltrack/health-tracker/internal/api/handler"
	"github.com/vitaltrack/health-tracker/internal/api/middleware"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
	infrahttp "github.com/vitaltrack/health-tracker/internal/infrastructure/http"
	"github.com/vitaltrack/health-tracker/internal/infrastructure/http/handlers"
	"github.com/vitaltrack/health-tracker/pkg/logger"
)

// Access is the slice of the access engine the HTTP layer needs.
type Access interface {
	middleware.PrincipalResolver
	middleware.AdminAuthorizer
}

// Deps are the services the router wires into handlers.
type Deps struct {
	Log     zerolog.Logger
	Tokens  ports.TokenService
	Access  Access
	Auth    ports.AuthService
	Records ports.RecordService
	Users   ports.UserService
	Admin   ports.AdminService
	// Probes are checked by GET /health/ready, keyed by dependency name.
	Probes map[string]handlers.Pinger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(contextLogger(d.Log))
	e.Use(requestLogger(d.Log))
	e.Use(middleware.Metrics())

	// --- Ops routes (no auth required) ---
	infrahttp.RegisterOps(e, d.Probes)

	authHandler := handler.NewAuthHandler(d.Auth)
	recordHandler := handler.NewRecordHandler(d.Records)
	userHandler := handler.NewUserHandler(d.Users)
	adminHandler := handler.NewAdminHandler(d.Admin, d.Records)

	authenticate := middleware.Auth(d.Tokens, d.Access)
	requireAdmin := middleware.RequireAdmin(d.Access)

	v1 := e.Group("/v1")

	// --- Auth routes ---
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/refresh", authHandler.Refresh, authenticate)
	v1.GET("/auth/me", authHandler.Me, authenticate)

	// --- Effective-target routes ---
	scoped := v1.Group("", authenticate, middleware.Impersonation())

	scoped.POST("/records", recordHandler.Create)
	scoped.GET("/records", recordHandler.List)
	scoped.GET("/records/stats", recordHandler.Stats)
	scoped.GET("/records/:id", recordHandler.Get)
	scoped.PUT("/records/:id", recordHandler.Update)
	scoped.DELETE("/records/:id", recordHandler.Delete)

	scoped.GET("/profile", userHandler.Profile)
	scoped.PUT("/profile", userHandler.UpdateProfile)

	// --- Admin routes ---
	scoped.POST("/impersonation", adminHandler.StartImpersonation, requireAdmin)
	scoped.DELETE("/impersonation", adminHandler.StopImpersonation, requireAdmin)

	admin := v1.Group("/admin", authenticate, requireAdmin)
	admin.GET("/users", adminHandler.ListUsers)
	admin.POST("/users", adminHandler.CreateUser)
	admin.GET("/users/:id", adminHandler.GetUser)
	admin.PUT("/users/:id", adminHandler.UpdateUser)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.POST("/users/:id/promote", adminHandler.Promote)
	admin.POST("/users/:id/demote", adminHandler.Demote)
	admin.POST("/users/:id/reset-password", adminHandler.ResetPassword)
	admin.GET("/users/:id/records", adminHandler.UserRecords)
	admin.GET("/records", adminHandler.ListRecords)
	admin.PUT("/records/:id", adminHandler.UpdateRecord)
	admin.DELETE("/records/:id", adminHandler.DeleteRecord)

	return e
}

// contextLogger stores a request-scoped logger carrying the request id in the
// request context.
func contextLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			reqLog := log.With().Str("request_id", rid).Logger()
			c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), reqLog)))
			return next(c)
		}
	}
}

// requestLogger emits one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
