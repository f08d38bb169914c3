package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newJWTApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":   c.Locals("user_id"),
			"role": c.Locals("user_role"),
		})
	})
	return app
}

func TestJWTProtectedStoresPrincipal(t *testing.T) {
	app := newJWTApp()
	token := signToken(t, jwt.MapClaims{"sub": "12", "role": "Mentor", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsInvalidTokens(t *testing.T) {
	app := newJWTApp()

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"bad signature":  "Bearer " + signToken(t, jwt.MapClaims{"sub": 1}, "other-secret"),
		"expired":        "Bearer " + signToken(t, jwt.MapClaims{"sub": 1, "exp": time.Now().Add(-time.Hour).Unix()}, testSecret),
		"no subject":     "Bearer " + signToken(t, jwt.MapClaims{"role": "student"}, testSecret),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestRoleDefaultsToStudent(t *testing.T) {
	require.Equal(t, "student", roleFromClaims(jwt.MapClaims{}))
	require.Equal(t, "admin", roleFromClaims(jwt.MapClaims{"roles": []interface{}{"", "ADMIN"}}))
}

func TestRateLimitRejectsAfterMax(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(5))
		return c.Next()
	})
	app.Use(RateLimit("submit", 2, time.Minute))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestCorrelationIDIsEchoed(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get(CorrelationHeader))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get(CorrelationHeader))
}
