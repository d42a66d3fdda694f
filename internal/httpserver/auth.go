package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/service"
)

type AuthHTTP struct {
	Svc    *service.AuthService
	Cookie CookieConfig
}

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6,max=72,bcryptlen"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type ProfileResponse struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Role     *string `json:"role"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return err
	}

	pair, err := h.Svc.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(h.Cookie.refresh(pair.RefreshToken))
	return c.JSON(http.StatusCreated, TokenResponse{AccessToken: pair.AccessToken})
}

// Login runs behind RequireCredentials.
func (h *AuthHTTP) Login(c echo.Context) error {
	user, ok := authUserFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidLogin)
	}

	pair, err := h.Svc.Login(c.Request().Context(), user)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(h.Cookie.refresh(pair.RefreshToken))
	logging.FromContext(c.Request().Context()).Info("login_successful", "user_id", user.ID)
	return c.JSON(http.StatusOK, TokenResponse{AccessToken: pair.AccessToken})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	pair, err := h.Svc.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		c.SetCookie(h.Cookie.clear())
		he := httpError(err)
		if he.Code < http.StatusInternalServerError {
			he = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session").SetInternal(err)
		}
		return he
	}

	c.SetCookie(h.Cookie.refresh(pair.RefreshToken))
	return c.JSON(http.StatusOK, TokenResponse{AccessToken: pair.AccessToken})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	if err := h.Svc.Logout(c.Request().Context(), claims.Subject); err != nil {
		return httpError(err)
	}

	c.SetCookie(h.Cookie.clear())
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

func (h *AuthHTTP) Profile(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	resp := ProfileResponse{
		ID:       claims.Subject,
		Email:    claims.Email,
		Username: claims.Username,
	}
	if claims.Role != "" {
		role := claims.Role
		resp.Role = &role
	}
	return c.JSON(http.StatusOK, resp)
}
