package main

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/autoinvoice/autoinvoice/internal/config"
)

// corsConfig is the policy for the browser UI. Requests carry the session
// cookie, so a bare "*" is dropped in production and origins must be listed.
func corsConfig(cfg config.Config) middleware.CORSConfig {
	patterns := make([]string, 0, len(cfg.CORSAllowedOrigins))
	for _, p := range cfg.CORSAllowedOrigins {
		if p == "*" && cfg.IsProduction() {
			continue
		}
		patterns = append(patterns, p)
	}
	return middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return matchCORSOrigin(origin, patterns), nil
		},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           600,
	}
}

// matchCORSOrigin reports whether origin is allowed by one of patterns.
// Patterns are "*", an exact origin, or scheme://*.domain for any subdomain.
// Hosts compare case-insensitively and a trailing slash on a pattern is ignored.
func matchCORSOrigin(origin string, patterns []string) bool {
	o, err := url.Parse(origin)
	if err != nil || o.Scheme == "" || o.Host == "" {
		return false
	}
	host := strings.ToLower(o.Host)
	for _, p := range patterns {
		p = strings.TrimSuffix(strings.TrimSpace(p), "/")
		if p == "*" {
			return true
		}
		wildcard := strings.Contains(p, "://*.")
		pu, err := url.Parse(strings.Replace(p, "://*.", "://", 1))
		if err != nil || pu.Scheme != o.Scheme || pu.Host == "" {
			continue
		}
		want := strings.ToLower(pu.Host)
		if !wildcard {
			if host == want {
				return true
			}
			continue
		}
		if strings.HasSuffix(host, "."+want) {
			return true
		}
	}
	return false
}
