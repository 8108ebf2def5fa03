package repository

import (
	"context"

	"thing-counter/internal/auth/domain/model"
)

// UserRepository stores user profiles. Lookups of unknown users return
// model.ErrUserNotFound.
type UserRepository interface {
	// Create inserts a new profile, failing with model.ErrEmailTaken when
	// another user already has the email.
	Create(ctx context.Context, user *model.User) error
	// Upsert refreshes the profile of an external identity, keeping
	// CreatedAt from the first sign-in.
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
