// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// LoginRequest represents the request payload for operator login
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100" example:"operator1"`
	Password string `json:"password" validate:"required,min=1,max=100" example:"SecurePass123!"`
}

// LoginResponse is the data returned after a successful operator login
type LoginResponse struct {
	AccessToken string    `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType   string    `json:"token_type" example:"Bearer"`
	ExpiresIn   int       `json:"expires_in" example:"28800"`
	ExpiresAt   time.Time `json:"expires_at" example:"2024-01-15T16:30:00Z"`
	Operator    string    `json:"operator" example:"operator1"`
}

// LogoutResponse confirms that the presented token was revoked
type LogoutResponse struct {
	Operator  string `json:"operator"`
	RevokedAt string `json:"revoked_at"`
}
