package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/Skotchmaster/auth_service/internal/service"
)

func TestPolicies(t *testing.T) {
	p := NewPolicies([]Route{
		{Method: http.MethodPost, Path: "/auth/login", Access: Public},
		{Method: http.MethodGet, Path: "/auth/profile", Access: Protected},
	})

	assert.True(t, p.IsPublic(http.MethodPost, "/auth/login"))
	assert.False(t, p.IsPublic(http.MethodGet, "/auth/login"))
	assert.False(t, p.IsPublic(http.MethodGet, "/auth/profile"))
	assert.False(t, p.IsPublic(http.MethodGet, "/anything"))
	assert.False(t, p.IsPublic(http.MethodGet, ""))
}

func TestRoutes_PublicSet(t *testing.T) {
	h := &AuthHTTP{}
	var public []string
	for _, r := range Routes(&Deps{AuthHandler: h, Gatherer: prometheus.NewRegistry()}) {
		if r.Access == Public {
			public = append(public, r.Method+" "+r.Path)
		}
	}

	assert.ElementsMatch(t, []string{
		"GET /health/live",
		"GET /health/ready",
		"GET /metrics",
		"POST /auth/register",
		"POST /auth/login",
		"POST /auth/refresh",
	}, public)
}

func TestHTTPError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: service.ErrDuplicateEmail, code: http.StatusConflict},
		{err: service.ErrUserNotFound, code: http.StatusBadRequest},
		{err: service.ErrInvalidCredentials, code: http.StatusBadRequest},
		{err: fmt.Errorf("verify: %w", service.ErrInvalidToken), code: http.StatusUnauthorized},
		{err: service.ErrExpiredSession, code: http.StatusUnauthorized},
		{err: service.ErrStaleSession, code: http.StatusUnauthorized},
		{err: echo.NewHTTPError(http.StatusTeapot, "tea"), code: http.StatusTeapot},
		{err: errors.New("db down"), code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, httpError(tt.err).Code)
		})
	}

	assert.Equal(t, httpError(service.ErrUserNotFound).Message, httpError(service.ErrInvalidCredentials).Message)
}
