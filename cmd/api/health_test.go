package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoinvoice/autoinvoice/internal/metrics"
)

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func getHealth(t *testing.T, checks ...healthCheck) (int, healthBody) {
	t.Helper()
	e := echo.New()
	e.GET("/healthz", healthHandler(checks...))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body healthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func up(context.Context) error { return nil }

func TestHealth_AllUp(t *testing.T) {
	code, body := getHealth(t,
		healthCheck{name: metrics.DepPostgres, ping: up},
		healthCheck{name: metrics.DepRedis, ping: up},
	)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
}

func TestHealth_DependencyDown(t *testing.T) {
	code, body := getHealth(t,
		healthCheck{name: metrics.DepPostgres, ping: up},
		healthCheck{name: metrics.DepRedis, ping: func(context.Context) error { return errors.New("connection refused") }},
	)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "down", body.Checks["redis"])
	assert.Equal(t, "ok", body.Checks["postgres"])
}

func TestHealth_ProbesShareDeadline(t *testing.T) {
	var deadline bool
	getHealth(t, healthCheck{name: metrics.DepPostgres, ping: func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	}})
	assert.True(t, deadline)
}
