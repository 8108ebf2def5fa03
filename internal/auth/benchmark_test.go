package auth_test

import (
	"context"
	"testing"

	"thing-counter/internal/auth/adapter/security"
	"thing-counter/internal/auth/config"
	"thing-counter/internal/auth/domain/model"

	"golang.org/x/crypto/bcrypt"
)

func BenchmarkPasswordHashing(b *testing.B) {
	password := []byte("SuperSecurePassword123")
	for i := 0; i < b.N; i++ {
		_, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
		if err != nil {
			b.Fatalf("bcrypt error: %v", err)
		}
	}
}

func BenchmarkPasswordCompare(b *testing.B) {
	password := []byte("SuperSecurePassword123")
	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		b.Fatalf("bcrypt error: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := bcrypt.CompareHashAndPassword(hash, password); err != nil {
			b.Fatalf("bcrypt compare error: %v", err)
		}
	}
}

func BenchmarkTokenRoundTrip(b *testing.B) {
	svc, err := security.NewJWTokenService(config.DefaultConfig("benchmark-secret-0123456789"))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		token, err := svc.GenerateToken(ctx, "user-123", "test@example.com", model.ProviderPassword)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := svc.ValidateToken(ctx, token); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUserSanitized(b *testing.B) {
	user := &model.User{
		ID:           "user-123",
		Email:        "test@example.com",
		PasswordHash: "hash",
	}
	for i := 0; i < b.N; i++ {
		_ = user.Sanitized()
	}
}
