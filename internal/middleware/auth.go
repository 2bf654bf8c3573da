// Package middleware provides authentication, logging, tracing, and rate limiting for the HTTP layer.
package middleware

import (
	"strconv"
	"strings"

	"medfeed/internal/config"
	"medfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// ActorFromCtx returns the authenticated actor stored by AuthRequired.
func ActorFromCtx(c *fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals("actor").(models.Actor)
	return actor, ok
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
		"code":  models.CodeUnauthorized,
	})
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return unauthorized(c, "Authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return unauthorized(c, "Invalid authorization header format")
	}

	return authenticate(c, parts[1])
}

// WebSocketAuthRequired validates JWT tokens from the query string for WebSocket upgrades,
// falling back to the Authorization header.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return AuthRequired(c)
	}
	return authenticate(c, token)
}

func authenticate(c *fiber.Ctx, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return unauthorized(c, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return unauthorized(c, "Invalid token claims")
	}

	// Subject claim per RFC 7519 carries the doctor ID.
	subStr, ok := claims["sub"].(string)
	if !ok {
		return unauthorized(c, "Invalid token structure - missing subject")
	}

	doctorID, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil || doctorID == 0 {
		return unauthorized(c, "Invalid doctor ID in token")
	}

	actor := models.Actor{ID: uint(doctorID), Roles: rolesFromClaims(claims)}
	c.Locals("userID", actor.ID)
	c.Locals("actor", actor)

	return c.Next()
}

func rolesFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims["roles"].([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok && s != "" {
			roles = append(roles, s)
		}
	}
	return roles
}
