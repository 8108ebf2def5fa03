package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// App bundles the Admin SDK clients used by the server
type App struct {
	app       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
}

// NewApp initializes the Admin SDK. The Firestore client is only created
// when withFirestore is set, since the MongoDB driver does not need it.
func NewApp(ctx context.Context, cfg *Config, withFirestore bool) (*App, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}

	fa := &App{app: app, Auth: authClient}
	if withFirestore {
		fs, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firestore: %w", err)
		}
		fa.Firestore = fs
	}
	return fa, nil
}

// Close releases the Firestore client
func (a *App) Close() error {
	if a == nil || a.Firestore == nil {
		return nil
	}
	return a.Firestore.Close()
}
