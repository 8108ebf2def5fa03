package model

import (
	"errors"
	"time"
)

// Sign-in providers
const (
	ProviderGoogle   = "google.com"
	ProviderPassword = "password"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password does not meet strength requirements")
	ErrInvalidIDToken     = errors.New("invalid identity token")
)

// User is the profile stored at users/{uid}. Its counters live in the
// counters subcollection of the same document.
type User struct {
	ID           string    `json:"uid" bson:"_id" firestore:"-"`
	Email        string    `json:"email" bson:"email" firestore:"email"`
	DisplayName  string    `json:"displayName,omitempty" bson:"display_name,omitempty" firestore:"displayName,omitempty"`
	PhotoURL     string    `json:"photoUrl,omitempty" bson:"photo_url,omitempty" firestore:"photoUrl,omitempty"`
	Provider     string    `json:"provider" bson:"provider" firestore:"provider"`
	PasswordHash string    `json:"-" bson:"password_hash,omitempty" firestore:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at" firestore:"createdAt"`
	LastSignInAt time.Time `json:"lastSignInAt" bson:"last_sign_in_at" firestore:"lastSignInAt"`
}

// Identity is a verified external identity, e.g. a Google account
// authenticated through Firebase.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Provider    string
}

// ToUser builds the profile for a first sign-in
func (i *Identity) ToUser(now time.Time) *User {
	return &User{
		ID:           i.UID,
		Email:        i.Email,
		DisplayName:  i.DisplayName,
		PhotoURL:     i.PhotoURL,
		Provider:     i.Provider,
		CreatedAt:    now,
		LastSignInAt: now,
	}
}

// Sanitized returns a copy without the password hash
func (u *User) Sanitized() *User {
	cp := *u
	cp.PasswordHash = ""
	return &cp
}
