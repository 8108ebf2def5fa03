package auth

import (
	"context"
	"fmt"
	"time"

	authhttp "thing-counter/internal/auth/adapter/http"
	"thing-counter/internal/auth/adapter/persistence/firestoredb"
	"thing-counter/internal/auth/adapter/persistence/mongodb"
	"thing-counter/internal/auth/adapter/security"
	"thing-counter/internal/auth/config"
	"thing-counter/internal/auth/domain/repository"
	"thing-counter/internal/auth/usecase"
	"thing-counter/internal/platform"
	"thing-counter/internal/shared/eventbus"
	"thing-counter/internal/shared/logger"

	"cloud.google.com/go/firestore"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

// Dependencies are the shared connections the auth module is built on.
// FirebaseAuth is optional; without it Google sign-in answers 501.
type Dependencies struct {
	StorageDriver string
	Mongo         *mongo.Database
	Firestore     *firestore.Client
	FirebaseAuth  *firebaseauth.Client
	Bus           eventbus.EventBusInterface
	Logger        logger.Logger
}

// AuthModule represents the complete authentication module
type AuthModule struct {
	repository repository.UserRepository
	tokenSvc   repository.TokenService
	usecase    usecase.AuthUsecaseInterface
	handler    *authhttp.AuthHTTPHandler
	middleware *authhttp.AuthMiddleware
	config     *config.Config
}

// NewAuthModule creates a new authentication module instance
func NewAuthModule(ctx context.Context, cfg *config.Config, deps Dependencies) (*AuthModule, error) {
	log := deps.Logger
	if log == nil {
		log = logger.NewLogger()
	}

	var users repository.UserRepository
	switch deps.StorageDriver {
	case platform.DriverFirestore:
		if deps.Firestore == nil {
			return nil, fmt.Errorf("firestore storage selected but no firestore client configured")
		}
		users = firestoredb.NewUserRepository(deps.Firestore)
	case platform.DriverMongo, "":
		if deps.Mongo == nil {
			return nil, fmt.Errorf("mongo storage selected but no database configured")
		}
		repo, err := mongodb.NewUserRepository(ctx, deps.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to create user repository: %w", err)
		}
		users = repo
	default:
		return nil, fmt.Errorf("unknown storage driver %q", deps.StorageDriver)
	}

	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	var verifier repository.IdentityVerifier
	if deps.FirebaseAuth != nil {
		verifier = security.NewFirebaseVerifier(deps.FirebaseAuth)
	} else {
		log.Warn("Firebase Auth not configured, Google sign-in disabled")
	}

	authUsecase := usecase.NewAuthUsecase(users, tokenSvc, verifier, deps.Bus, cfg.AccessTokenTTL, cfg.PasswordSignIn, log)

	handler := authhttp.NewAuthHTTPHandler(
		authUsecase,
		cfg.CookieName,
		cfg.CookiePath,
		cfg.CookieDomain,
		int(cfg.AccessTokenTTL.Seconds()),
		cfg.CookieSecure,
		cfg.CookieHTTPOnly,
		cfg.CookieSameSite,
	)

	return &AuthModule{
		repository: users,
		tokenSvc:   tokenSvc,
		usecase:    authUsecase,
		handler:    handler,
		middleware: authhttp.NewAuthMiddleware(authUsecase, cfg.CookieName),
		config:     cfg,
	}, nil
}

// RegisterRoutes registers the /auth routes with the provided router
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	limit := am.middleware.RateLimiter(20, time.Minute)
	am.handler.SetupAuthRoutes(router.Group("/auth"), am.middleware, limit)
}

// GetUsecase returns the auth usecase for external access
func (am *AuthModule) GetUsecase() usecase.AuthUsecaseInterface {
	return am.usecase
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return am.middleware
}

// Stop performs cleanup when the module is shut down
func (am *AuthModule) Stop() error {
	return nil
}
