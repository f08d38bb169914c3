package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreRegisteredOnce(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	require.NotNil(t, APIRequests())
	require.NotNil(t, APILatency())
	require.NotNil(t, APIErrors())
	require.NotNil(t, Submissions())
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	AutoGrades().WithLabelValues("graded").Inc()
	LeaderboardCache().WithLabelValues("miss").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "auto_grades_total"))
	require.True(t, strings.Contains(string(body), "leaderboard_cache_total"))
}
