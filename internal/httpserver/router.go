package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	loggingmw "github.com/Skotchmaster/auth_service/internal/middleware/logging"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Issuer      *tokens.Issuer
	Logger      *slog.Logger
	Gatherer    prometheus.Gatherer
	Ready       func(ctx context.Context) error
}

func Routes(d *Deps) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/health/live", Access: Public, Handler: live},
		{Method: http.MethodGet, Path: "/health/ready", Access: Public, Handler: ready(d.Ready)},
		{Method: http.MethodGet, Path: "/metrics", Access: Public, Handler: echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))},

		{Method: http.MethodPost, Path: "/auth/register", Access: Public, Handler: d.AuthHandler.Register},
		{Method: http.MethodPost, Path: "/auth/login", Access: Public, Handler: d.AuthHandler.Login, Extra: []echo.MiddlewareFunc{d.AuthHandler.RequireCredentials}},
		{Method: http.MethodPost, Path: "/auth/refresh", Access: Public, Handler: d.AuthHandler.Refresh},
		{Method: http.MethodPost, Path: "/auth/logout", Access: Protected, Handler: d.AuthHandler.Logout},
		{Method: http.MethodGet, Path: "/auth/profile", Access: Protected, Handler: d.AuthHandler.Profile},
	}
}

// New builds the echo instance with the common middleware, the guard and every route.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	routes := Routes(d)

	e.Use(
		ecM.Recover(),
		ecM.RequestID(),
		ecM.Secure(),
		loggingmw.RequestLogger(d.Logger),
		Guard(d.Issuer, NewPolicies(routes)),
	)

	for _, r := range routes {
		e.Add(r.Method, r.Path, r.Handler, r.Extra...)
	}
	return e
}

func live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func ready(check func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := check(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready").SetInternal(err)
		}
		return c.NoContent(http.StatusOK)
	}
}
