package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/mysteryforum/forum-api/internal/config"
	"github.com/mysteryforum/forum-api/internal/handler"
)

func TestHealthCheckReportsDependencies(t *testing.T) {
	cfg := config.Config{AppName: "forum-api", AppEnv: "test"}
	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	app := fiber.New()
	app.Get("/ok", handler.HealthCheck(cfg, map[string]handler.DependencyCheck{"database": healthy}))
	app.Get("/degraded", handler.HealthCheck(cfg, map[string]handler.DependencyCheck{"database": healthy, "redis": down}))

	resp := doJSON(t, app, http.MethodGet, "/ok", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decodeEnvelope(t, resp).Success)

	resp = doJSON(t, app, http.MethodGet, "/degraded", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Contains(t, string(decodeEnvelope(t, resp).Data), `"redis":"connection refused"`)
}
