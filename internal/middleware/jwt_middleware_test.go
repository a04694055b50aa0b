package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catalog/internal/middleware"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret"

func signToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "catalog-reader",
		"exp": time.Now().Add(expiresIn).Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func setupApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.AuthRequired(testSecret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("subject").(string))
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	app := setupApp()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, -time.Hour), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret, time.Hour), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestValidateToken(t *testing.T) {
	claims, err := middleware.ValidateToken(signToken(t, testSecret, time.Hour), []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "catalog-reader", claims["sub"])

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = middleware.ValidateToken(unsigned, []byte(testSecret))
	assert.Error(t, err)
}
