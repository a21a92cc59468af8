package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/autoinvoice/autoinvoice/internal/metrics"
	"github.com/autoinvoice/autoinvoice/internal/version"
)

// healthTimeout bounds all probes of one /healthz request.
const healthTimeout = 500 * time.Millisecond

type healthCheck struct {
	name string
	ping func(ctx context.Context) error
}

// healthHandler probes every dependency. Any failed probe turns the answer
// into 503 with status "degraded".
func healthHandler(checks ...healthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		results := make(map[string]string, len(checks))
		for _, hc := range checks {
			start := time.Now()
			err := hc.ping(ctx)
			metrics.ObservePing(hc.name, time.Since(start), err)
			results[hc.name] = "ok"
			if err != nil {
				results[hc.name] = "down"
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		return c.JSON(code, map[string]any{
			"status":  status,
			"time":    time.Now().UTC().Format(time.RFC3339),
			"version": version.String(),
			"checks":  results,
		})
	}
}
