// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/okosplazma-sms/app/dto"
	"github.com/amirphl/okosplazma-sms/app/services"
	"github.com/gofiber/fiber/v3"
)

const (
	operatorLocal    = "operator"
	tokenIDLocal     = "token_id"
	tokenClaimsLocal = "token_claims"
	accessTokenLocal = "access_token"
)

// AuthMiddleware handles operator JWT validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// Authenticate validates the bearer token and stores the operator in the request locals
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "MISSING_AUTHORIZATION_HEADER", "Authorization header is required")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "MISSING_ACCESS_TOKEN", "Access token is required")
		}

		// this already checks for revocation
		claims, err := m.tokenService.ValidateOperatorToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "TOKEN_EXPIRED", "Access token has expired")
			case errors.Is(err, services.ErrTokenRevoked):
				return unauthorized(c, "TOKEN_REVOKED", "Access token has been revoked")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "TOKEN_INVALID", "Invalid access token")
			default:
				return unauthorized(c, "TOKEN_VALIDATION_FAILED", "Token validation failed")
			}
		}

		c.Locals(operatorLocal, claims.Username)
		c.Locals(tokenIDLocal, claims.TokenID)
		c.Locals(tokenClaimsLocal, claims)
		c.Locals(accessTokenLocal, token)

		return c.Next()
	}
}

func unauthorized(c fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: code,
		},
	})
}

// GetOperatorFromContext returns the authenticated operator username
func GetOperatorFromContext(c fiber.Ctx) (string, bool) {
	operator, ok := c.Locals(operatorLocal).(string)
	return operator, ok && operator != ""
}

// GetTokenClaimsFromContext returns the validated claims of the current request
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.OperatorTokenClaims, bool) {
	claims, ok := c.Locals(tokenClaimsLocal).(*services.OperatorTokenClaims)
	return claims, ok
}

// GetAccessTokenFromContext returns the raw bearer token of the current request
func GetAccessTokenFromContext(c fiber.Ctx) (string, bool) {
	token, ok := c.Locals(accessTokenLocal).(string)
	return token, ok && token != ""
}
