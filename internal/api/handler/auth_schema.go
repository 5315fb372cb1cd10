package handler

import (
	"time"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

// errorResponse documents the error envelope for swagger. The API error
// handler renders the same shape.
type errorResponse struct {
	Error   string                    `json:"error"`
	Code    string                    `json:"code"`
	Field   string                    `json:"field,omitempty"`
	Details []*domain.ValidationError `json:"details,omitempty"`
}

// --- Request / Response types ---

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"     validate:"required,min=2,max=255"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type authResponse struct {
	tokenResponse
	User *domain.User `json:"user"`
}

func toTokenResponse(t domain.Token) tokenResponse {
	return tokenResponse{Token: t.Raw, TokenType: "Bearer", ExpiresAt: t.ExpiresAt.UTC()}
}
