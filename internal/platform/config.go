// Package platform holds the process-wide infrastructure settings shared by
// the feature modules: which store backs them and how to reach it.
package platform

import (
	"errors"
	"fmt"

	"thing-counter/internal/platform/firebase"
	"thing-counter/internal/shared/database"

	"github.com/caarlos0/env/v6"
)

// Storage drivers
const (
	DriverMongo     = "mongo"
	DriverFirestore = "firestore"
)

// Config selects the storage driver and carries the connection settings
type Config struct {
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"mongo"`
	Mongo         database.MongoConfig
	Firebase      firebase.Config
}

// LoadConfig parses the platform settings from the environment
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load platform configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected driver has what it needs
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGODB_URI is required for the mongo storage driver")
		}
	case DriverFirestore:
		if !c.Firebase.Enabled() {
			return errors.New("FIREBASE_PROJECT_ID is required for the firestore storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}
