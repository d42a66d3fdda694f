package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/service"
)

const msgInvalidLogin = "invalid email or password"

func httpError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, service.ErrDuplicateEmail):
		return echo.NewHTTPError(http.StatusConflict, "email already registered").SetInternal(err)
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidLogin).SetInternal(err)
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrExpiredSession),
		errors.Is(err, service.ErrStaleSession):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
