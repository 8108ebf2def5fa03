package database

import (
	"context"
	"fmt"
	"time"

	"thing-counter/internal/shared/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig holds the MongoDB connection settings
type MongoConfig struct {
	URI               string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName      string        `env:"MONGODB_DATABASE" envDefault:"thing_counter"`
	ConnectionTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`

	// Connection pooling
	MaxPoolSize uint64 `env:"MONGODB_MAX_POOL_SIZE" envDefault:"50"`
	MinPoolSize uint64 `env:"MONGODB_MIN_POOL_SIZE" envDefault:"2"`
}

// Mongo is an open connection and the database the app works in
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
	log      logger.Logger
}

// ConnectMongo dials MongoDB and verifies the connection with a ping
func ConnectMongo(ctx context.Context, cfg MongoConfig, log logger.Logger) (*Mongo, error) {
	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"database": cfg.DatabaseName,
	}).Info("MongoDB connection established")
	return &Mongo{
		Client:   client,
		Database: client.Database(cfg.DatabaseName),
		log:      log,
	}, nil
}

// Ping checks the primary is reachable
func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		m.log.Errorf("Failed to disconnect MongoDB: %v", err)
		return err
	}
	return nil
}
