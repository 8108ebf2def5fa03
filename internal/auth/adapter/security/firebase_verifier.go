package security

import (
	"context"
	"fmt"

	"thing-counter/internal/auth/domain/model"

	"firebase.google.com/go/v4/auth"
)

// FirebaseVerifier checks Firebase ID tokens produced by the Google
// sign-in popup of the web client.
type FirebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier wraps a Firebase Auth client
func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// VerifyIDToken validates the token signature and audience and returns the identity
func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*model.Identity, error) {
	if idToken == "" {
		return nil, model.ErrInvalidIDToken
	}
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidIDToken, err)
	}
	return identityFromToken(tok), nil
}

func identityFromToken(tok *auth.Token) *model.Identity {
	id := &model.Identity{
		UID:      tok.UID,
		Provider: tok.Firebase.SignInProvider,
	}
	if id.Provider == "" {
		id.Provider = model.ProviderGoogle
	}
	if v, ok := tok.Claims["email"].(string); ok {
		id.Email = v
	}
	if v, ok := tok.Claims["name"].(string); ok {
		id.DisplayName = v
	}
	if v, ok := tok.Claims["picture"].(string); ok {
		id.PhotoURL = v
	}
	return id
}
