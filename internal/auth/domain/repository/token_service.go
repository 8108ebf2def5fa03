package repository

import (
	"context"

	"thing-counter/internal/auth/domain/model"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and checks session tokens
type TokenService interface {
	GenerateToken(ctx context.Context, userID, email, provider string) (string, error)
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// IdentityVerifier checks an ID token issued by an external provider
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*model.Identity, error)
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"uid"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}
