// Package middleware provides authentication, logging and rate limiting middleware for the application.
package middleware

import (
	"context"
	"strconv"
	"strings"

	"clanhub/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// parserOptions pins the accepted algorithms and, when configured, the issuer
// and audience of tokens minted by the identity provider.
func parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}
	return opts
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
	})
}

// AuthRequired is a middleware that enforces authentication for protected routes.
// The authenticated user id is stored in c.Locals("userID") as a uint.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return unauthorized(c, "Authorization header required")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return unauthorized(c, "Invalid authorization header format")
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, parserOptions()...)
	if err != nil || !token.Valid {
		return unauthorized(c, "Invalid or expired token")
	}

	// Subject claim carries the user id (RFC 7519)
	if claims.Subject == "" {
		return unauthorized(c, "Invalid token structure - missing subject")
	}
	userIDVal, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userIDVal == 0 {
		return unauthorized(c, "Invalid user ID in token")
	}

	c.Locals("userID", uint(userIDVal))
	// Sync to UserContext for logging and downstream services
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, uint(userIDVal)))

	return c.Next()
}
