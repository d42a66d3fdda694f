package httpserver

import (
	"net/http"
	"time"
)

const RefreshCookieName = "refresh_token"

type CookieConfig struct {
	Secure bool
	TTL    time.Duration
}

func (cc CookieConfig) refresh(value string) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cc.TTL.Seconds()),
		Expires:  time.Now().Add(cc.TTL),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (cc CookieConfig) clear() *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
