package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	authconfig "thing-counter/internal/auth/config"
	counterconfig "thing-counter/internal/counter/config"
	"thing-counter/internal/di"
	"thing-counter/internal/platform"
	"thing-counter/internal/platform/firebase"
	apperrors "thing-counter/internal/shared/errors"
	"thing-counter/internal/shared/eventbus"
	"thing-counter/internal/shared/logger"

	"github.com/caarlos0/env/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"localhost"`
	Port            string        `env:"SERVER_PORT" envDefault:"3000"`
	AllowOrigins    string        `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	serverCfg := &ServerConfig{}
	if err := env.Parse(serverCfg); err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}
	platformCfg, err := platform.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load platform configuration: %v", err)
	}
	authCfg, err := authconfig.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load auth configuration: %v", err)
	}
	counterCfg, err := counterconfig.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load counter configuration: %v", err)
	}

	appLogger := logger.NewLogger().WithComponent("server")
	appLogger.WithFields(map[string]interface{}{
		"storage":     platformCfg.StorageDriver,
		"change_feed": counterCfg.ChangeFeed,
	}).Info("Application configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, serverCfg, platformCfg, authCfg, counterCfg, appLogger); err != nil {
		appLogger.Errorf("Server stopped with error: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Application stopped gracefully")
}

func run(
	ctx context.Context,
	serverCfg *ServerConfig,
	platformCfg *platform.Config,
	authCfg *authconfig.Config,
	counterCfg *counterconfig.Config,
	appLogger logger.Logger,
) error {
	container := di.NewContainer(appLogger)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := container.ConnectPlatform(connectCtx, platformCfg); err != nil {
		return fmt.Errorf("connect platform: %w", err)
	}
	if err := container.InitializeAuth(connectCtx, authCfg); err != nil {
		return err
	}
	if err := container.InitializeCounter(connectCtx, counterCfg); err != nil {
		return err
	}
	subscribeAudit(container.Bus, appLogger)

	app := newApp(container, serverCfg, platformCfg, appLogger)
	addr := fmt.Sprintf("%s:%s", serverCfg.Host, serverCfg.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Infof("All modules initialized. Starting HTTP server on %s", addr)
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	return g.Wait()
}

func newApp(container *di.Container, serverCfg *ServerConfig, platformCfg *platform.Config, appLogger logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Thing Counter API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(apperrors.Response{Error: "HTTP_ERROR", Message: fe.Message})
			}
			appLogger.Errorf("HTTP Error: %v", err)
			status, body := apperrors.ToResponse(err)
			return c.Status(status).JSON(body)
		},
	})

	authModule := container.GetAuthModule()
	counterModule := container.GetCounterModule()
	mw := authModule.GetMiddleware()

	app.Use(recover.New())
	app.Use(mw.RequestID(), mw.RequestContext())
	app.Use(mw.SecurityHeaders())
	app.Use(mw.CORS(serverCfg.AllowOrigins))

	app.Get("/health", func(c *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		modules, err := container.HealthCheck(healthCtx)
		if err != nil {
			appLogger.Errorf("Health check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "UNHEALTHY",
				"error":   err.Error(),
				"modules": modules,
			})
		}
		return c.JSON(fiber.Map{
			"status":    "HEALTHY",
			"timestamp": time.Now().UTC(),
			"storage":   platformCfg.StorageDriver,
			"modules":   modules,
		})
	})

	api := app.Group("/api/v1")
	firebase.NewWebConfigHandler(platformCfg.Firebase.Web).RegisterRoutes(api)
	authModule.RegisterRoutes(api)
	counterModule.RegisterRoutes(app, api, mw.Protect())
	return app
}

// subscribeAudit logs sign-in and sign-out events
func subscribeAudit(bus *eventbus.EventBus, appLogger logger.Logger) {
	audit := appLogger.WithComponent("audit")
	handler := func(ctx context.Context, event eventbus.Event) error {
		audit.WithFields(map[string]interface{}{
			"event": event.Type(),
			"uid":   event.UserID(),
			"at":    event.Timestamp(),
		}).Info("Session event")
		return nil
	}
	bus.Subscribe(eventbus.EventTypeUserSignedIn, handler)
	bus.Subscribe(eventbus.EventTypeUserSignedOut, handler)
}
