package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medfeed/internal/config"
	"medfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		actor, ok := ActorFromCtx(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"id": actor.ID, "elevated": actor.IsElevated()})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedID     uint
		elevated       bool
	}{
		{
			name:           "Happy Path",
			authHeader:     "Bearer " + signToken(t, jwt.MapClaims{"sub": "123", "exp": time.Now().Add(time.Hour).Unix()}),
			expectedStatus: http.StatusOK,
			expectedID:     123,
		},
		{
			name: "Moderator Role",
			authHeader: "Bearer " + signToken(t, jwt.MapClaims{
				"sub": "7", "roles": []string{models.RoleModerator}, "exp": time.Now().Add(time.Hour).Unix(),
			}),
			expectedStatus: http.StatusOK,
			expectedID:     7,
			elevated:       true,
		},
		{name: "Missing Header", expectedStatus: http.StatusUnauthorized},
		{name: "Invalid Format", authHeader: "Basic dXNlcjpwYXNz", expectedStatus: http.StatusUnauthorized},
		{name: "Malformed Token", authHeader: "Bearer malformed.token.here", expectedStatus: http.StatusUnauthorized},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + signToken(t, jwt.MapClaims{"sub": "123", "exp": time.Now().Add(-time.Hour).Unix()}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Non Numeric Subject",
			authHeader:     "Bearer " + signToken(t, jwt.MapClaims{"sub": "abc", "exp": time.Now().Add(time.Hour).Unix()}),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body struct {
					ID       uint `json:"id"`
					Elevated bool `json:"elevated"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedID, body.ID)
				assert.Equal(t, tt.elevated, body.Elevated)
			}
		})
	}
}

func TestWebSocketAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret})

	app.Get("/ws-test", WebSocketAuthRequired, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	valid := signToken(t, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name           string
		tokenParam     string
		authHeader     string
		expectedStatus int
	}{
		{name: "Token via Query Param", tokenParam: valid, expectedStatus: http.StatusOK},
		{name: "Token via Header", authHeader: "Bearer " + valid, expectedStatus: http.StatusOK},
		{name: "Missing Token", expectedStatus: http.StatusUnauthorized},
		{name: "Invalid Token", tokenParam: "invalid-token", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/ws-test"
			if tt.tokenParam != "" {
				url += "?token=" + tt.tokenParam
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}
