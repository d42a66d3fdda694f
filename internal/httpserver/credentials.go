package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
)

const ctxAuthUser = "auth_user"

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RequireCredentials verifies the login body before the handler runs and passes the
// matched user along in the context.
func (h *AuthHTTP) RequireCredentials(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("handler", "auth_credentials")

		var req LoginRequest
		if err := c.Bind(&req); err != nil {
			l.Warn("login_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		if err := c.Validate(&req); err != nil {
			l.Warn("login_error", "status", 400, "error", err)
			return err
		}

		user, err := h.Svc.ValidateUser(ctx, req.Email, req.Password)
		if err != nil {
			return httpError(err)
		}

		c.Set(ctxAuthUser, user)
		return next(c)
	}
}

func authUserFrom(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(ctxAuthUser).(*models.User)
	return u, ok && u != nil
}
