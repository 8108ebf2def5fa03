package di

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"thing-counter/internal/auth"
	authconfig "thing-counter/internal/auth/config"
	"thing-counter/internal/counter"
	counterconfig "thing-counter/internal/counter/config"
	"thing-counter/internal/platform"
	"thing-counter/internal/platform/firebase"
	"thing-counter/internal/shared/database"
	"thing-counter/internal/shared/eventbus"
	"thing-counter/internal/shared/logger"
)

// Container owns the process-wide connections and the feature modules built
// on them. Initialize in order: ConnectPlatform, InitializeAuth,
// InitializeCounter.
type Container struct {
	mu sync.RWMutex

	// Module instances
	AuthModule    *auth.AuthModule
	CounterModule *counter.CounterModule

	// Connections
	Mongo    *database.Mongo
	Firebase *firebase.App

	Platform *platform.Config
	Bus      *eventbus.EventBus
	Logger   logger.Logger
}

// NewContainer creates a container with its event bus
func NewContainer(log logger.Logger) *Container {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Container{
		Bus:    eventbus.NewEventBus(log),
		Logger: log,
	}
}

// ConnectPlatform opens the store selected by cfg. The Firebase Admin app is
// created whenever a project is configured, since Google sign-in needs it
// even when counters live in MongoDB.
func (c *Container) ConnectPlatform(ctx context.Context, cfg *platform.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Platform = cfg

	if cfg.Firebase.Enabled() {
		app, err := firebase.NewApp(ctx, &cfg.Firebase, cfg.StorageDriver == platform.DriverFirestore)
		if err != nil {
			return err
		}
		c.Firebase = app
		c.Logger.WithFields(map[string]interface{}{"project_id": cfg.Firebase.ProjectID}).Info("Firebase Admin SDK initialized")
	}

	if cfg.StorageDriver == platform.DriverMongo {
		m, err := database.ConnectMongo(ctx, cfg.Mongo, c.Logger)
		if err != nil {
			return err
		}
		c.Mongo = m
	}
	return nil
}

// InitializeAuth builds the auth module on the connected store
func (c *Container) InitializeAuth(ctx context.Context, cfg *authconfig.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Platform == nil {
		return errors.New("platform must be connected before the auth module")
	}
	deps := auth.Dependencies{
		StorageDriver: c.Platform.StorageDriver,
		Bus:           c.Bus,
		Logger:        c.Logger,
	}
	if c.Mongo != nil {
		deps.Mongo = c.Mongo.Database
	}
	if c.Firebase != nil {
		deps.Firestore = c.Firebase.Firestore
		deps.FirebaseAuth = c.Firebase.Auth
	}

	m, err := auth.NewAuthModule(ctx, cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}
	c.AuthModule = m
	return nil
}

// InitializeCounter builds the counter module on the connected store
func (c *Container) InitializeCounter(ctx context.Context, cfg *counterconfig.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Platform == nil {
		return errors.New("platform must be connected before the counter module")
	}
	deps := counter.Dependencies{
		StorageDriver: c.Platform.StorageDriver,
		Bus:           c.Bus,
		Logger:        c.Logger,
	}
	if c.Mongo != nil {
		deps.Mongo = c.Mongo.Database
	}
	if c.Firebase != nil {
		deps.Firestore = c.Firebase.Firestore
	}

	m, err := counter.NewCounterModule(ctx, cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create counter module: %w", err)
	}
	c.CounterModule = m
	return nil
}

// GetAuthModule returns the auth module instance
func (c *Container) GetAuthModule() *auth.AuthModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AuthModule
}

// GetCounterModule returns the counter module instance
func (c *Container) GetCounterModule() *counter.CounterModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.CounterModule
}

// HealthCheck pings every connection and reports per-component status
func (c *Container) HealthCheck(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := make(map[string]string)
	var errs []error

	check := func(name string, err error) {
		if err != nil {
			status[name] = "UNHEALTHY"
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		status[name] = "HEALTHY"
	}

	if c.Mongo != nil {
		check("mongodb", c.Mongo.Ping(ctx))
	}
	if c.CounterModule != nil {
		check("counters", c.CounterModule.Ping(ctx))
	}
	if c.AuthModule != nil {
		status["auth"] = "HEALTHY"
	}

	return status, errors.Join(errs...)
}

// Close stops the modules and closes connections in reverse order
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.CounterModule != nil {
		if err := c.CounterModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("counter module: %w", err))
		}
		c.CounterModule = nil
	}
	if c.AuthModule != nil {
		if err := c.AuthModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("auth module: %w", err))
		}
		c.AuthModule = nil
	}
	if c.Mongo != nil {
		if err := c.Mongo.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb: %w", err))
		}
		c.Mongo = nil
	}
	if c.Firebase != nil {
		if err := c.Firebase.Close(); err != nil {
			errs = append(errs, fmt.Errorf("firebase: %w", err))
		}
		c.Firebase = nil
	}

	c.Logger.Info("Container resources closed")
	return errors.Join(errs...)
}
