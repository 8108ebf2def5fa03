package testutil

import (
	"time"

	"thing-counter/internal/auth/domain/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserFixture provides test data for the User model
type UserFixture struct{}

// NewUserFixture creates a new UserFixture instance
func NewUserFixture() *UserFixture {
	return &UserFixture{}
}

// PasswordUser returns an email/password user with a bcrypt hash of password
func (f *UserFixture) PasswordUser(email, password string) *model.User {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Provider:     model.ProviderPassword,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		LastSignInAt: now,
	}
}

// GoogleUser returns a user created by Google sign-in
func (f *UserFixture) GoogleUser(uid, email string) *model.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.User{
		ID:           uid,
		Email:        email,
		DisplayName:  "Test User",
		Provider:     model.ProviderGoogle,
		CreatedAt:    now,
		LastSignInAt: now,
	}
}

// GoogleIdentity returns a verified identity as produced by the Firebase verifier
func (f *UserFixture) GoogleIdentity(uid, email string) *model.Identity {
	return &model.Identity{
		UID:         uid,
		Email:       email,
		DisplayName: "Test User",
		PhotoURL:    "https://example.com/avatar.png",
		Provider:    model.ProviderGoogle,
	}
}
