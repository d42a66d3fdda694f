package httpserver

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/tokens"
)

// CtxClaims is where the guard stores the verified *tokens.Claims.
const CtxClaims = "claims"

type Access int

const (
	Protected Access = iota
	Public
)

type Route struct {
	Method  string
	Path    string
	Access  Access
	Handler echo.HandlerFunc
	Extra   []echo.MiddlewareFunc
}

// Policies maps "METHOD /path" to its access level. Anything missing is protected.
type Policies map[string]Access

func NewPolicies(routes []Route) Policies {
	p := make(Policies, len(routes))
	for _, r := range routes {
		p[r.Method+" "+r.Path] = r.Access
	}
	return p
}

func (p Policies) IsPublic(method, path string) bool {
	return p[method+" "+path] == Public
}

func (p Policies) Skipper(c echo.Context) bool {
	return p.IsPublic(c.Request().Method, c.Path())
}

// Guard requires a valid bearer access token on every route the policies do not mark public.
func Guard(issuer *tokens.Issuer, policies Policies) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper:     policies.Skipper,
		ContextKey:  CtxClaims,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (any, error) {
			return issuer.VerifyAccessToken(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token").SetInternal(err)
		},
	})
}

func claimsFrom(c echo.Context) (*tokens.Claims, bool) {
	claims, ok := c.Get(CtxClaims).(*tokens.Claims)
	return claims, ok && claims != nil
}
