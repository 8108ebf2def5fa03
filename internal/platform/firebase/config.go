package firebase

// WebConfig is the public configuration object a browser or CLI client
// needs to talk to Firebase directly. None of it is secret.
type WebConfig struct {
	APIKey            string `env:"FIREBASE_API_KEY" json:"apiKey"`
	AuthDomain        string `env:"FIREBASE_AUTH_DOMAIN" json:"authDomain"`
	ProjectID         string `env:"FIREBASE_PROJECT_ID" json:"projectId"`
	StorageBucket     string `env:"FIREBASE_STORAGE_BUCKET" json:"storageBucket"`
	MessagingSenderID string `env:"FIREBASE_MESSAGING_SENDER_ID" json:"messagingSenderId"`
	AppID             string `env:"FIREBASE_APP_ID" json:"appId"`
}

// Config holds the Admin SDK settings plus the web config served to clients
type Config struct {
	ProjectID string `env:"FIREBASE_PROJECT_ID"`
	// CredentialsFile is a service account JSON; empty means application
	// default credentials (or the emulators when their env vars are set).
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	Web WebConfig
}

// Enabled reports whether a Firebase project is configured
func (c *Config) Enabled() bool {
	return c.ProjectID != ""
}
