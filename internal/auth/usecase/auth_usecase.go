package usecase

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"thing-counter/internal/auth/domain/model"
	"thing-counter/internal/auth/domain/repository"
	apperrors "thing-counter/internal/shared/errors"
	"thing-counter/internal/shared/eventbus"
	"thing-counter/internal/shared/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Password validation constants. bcrypt ignores input past 72 bytes.
const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AuthUsecaseInterface defines the contract for authentication use cases.
type AuthUsecaseInterface interface {
	SignInWithGoogle(ctx context.Context, idToken string) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, userID string) error
	ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleSignInRequest carries the Firebase ID token of a Google account
type GoogleSignInRequest struct {
	IDToken string `json:"idToken"`
}

// AuthResponse is returned by every successful sign-in
type AuthResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"accessToken"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// AuthUsecase implements the authentication logic.
type AuthUsecase struct {
	users          repository.UserRepository
	tokenSvc       repository.TokenService
	verifier       repository.IdentityVerifier
	bus            eventbus.EventBusInterface
	tokenTTL       time.Duration
	passwordSignIn bool
	now            func() time.Time
	log            logger.Logger
}

// NewAuthUsecase creates a new instance of AuthUsecase. verifier may be nil
// when Firebase is not configured, which disables Google sign-in.
func NewAuthUsecase(
	users repository.UserRepository,
	tokenSvc repository.TokenService,
	verifier repository.IdentityVerifier,
	bus eventbus.EventBusInterface,
	tokenTTL time.Duration,
	passwordSignIn bool,
	log logger.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:          users,
		tokenSvc:       tokenSvc,
		verifier:       verifier,
		bus:            bus,
		tokenTTL:       tokenTTL,
		passwordSignIn: passwordSignIn,
		now:            func() time.Time { return time.Now().UTC() },
		log:            log.WithComponent("auth_usecase"),
	}
}

// SignInWithGoogle verifies a Firebase ID token, refreshes the profile and
// issues a session token for the Firebase uid.
func (uc *AuthUsecase) SignInWithGoogle(ctx context.Context, idToken string) (*AuthResponse, error) {
	if uc.verifier == nil {
		return nil, apperrors.NewAppError(apperrors.ErrorTypeInternal, "google sign-in is not configured", http.StatusNotImplemented).
			WithCode("GOOGLE_SIGN_IN_DISABLED")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, apperrors.NewValidationError("idToken is required")
	}

	identity, err := uc.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		uc.log.WithContext(ctx).Warnf("Rejected Google ID token: %v", err)
		return nil, apperrors.NewAuthenticationError("invalid Google ID token").WithCause(err)
	}

	user := identity.ToUser(uc.now())
	if err := uc.users.Upsert(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, apperrors.NewConflictError("email is registered with a password").WithCause(err)
		}
		return nil, apperrors.WrapError(err, "failed to store user profile")
	}
	return uc.issue(ctx, user)
}

// Register creates an email/password account and signs it in
func (uc *AuthUsecase) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := uc.requirePasswordSignIn(); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, apperrors.NewValidationError(err.Error()).WithCause(err)
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, apperrors.NewValidationError(err.Error()).WithCause(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to hash password")
	}

	now := uc.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Provider:     model.ProviderPassword,
		PasswordHash: string(hash),
		CreatedAt:    now,
		LastSignInAt: now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, apperrors.NewConflictError("email already registered").WithCause(err)
		}
		return nil, apperrors.WrapError(err, "failed to create user")
	}

	uc.log.WithContext(ctx).WithFields(map[string]interface{}{"uid": user.ID}).Info("User registered")
	return uc.issue(ctx, user)
}

// Login checks an email/password pair
func (uc *AuthUsecase) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := uc.requirePasswordSignIn(); err != nil {
		return nil, err
	}
	invalid := apperrors.NewAuthenticationError("invalid email or password").WithCause(model.ErrInvalidCredentials)

	user, err := uc.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, invalid
		}
		return nil, apperrors.WrapError(err, "failed to load user")
	}
	if user.PasswordHash == "" {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalid
	}

	user.LastSignInAt = uc.now()
	if err := uc.users.Upsert(ctx, user); err != nil {
		uc.log.WithContext(ctx).Warnf("Failed to record sign-in time: %v", err)
	}
	return uc.issue(ctx, user)
}

// Logout publishes the sign-out. Session tokens are stateless and simply
// expire; the HTTP layer drops the cookie.
func (uc *AuthUsecase) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.NewAuthenticationError("not signed in")
	}
	uc.publish(ctx, eventbus.EventTypeUserSignedOut, userID)
	return nil
}

func (uc *AuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, apperrors.NewAuthenticationError("invalid token").WithCause(err)
	}
	return claims, nil
}

func (uc *AuthUsecase) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("user").WithCause(err)
		}
		return nil, apperrors.WrapError(err, "failed to load user")
	}
	return user.Sanitized(), nil
}

func (uc *AuthUsecase) issue(ctx context.Context, user *model.User) (*AuthResponse, error) {
	token, err := uc.tokenSvc.GenerateToken(ctx, user.ID, user.Email, user.Provider)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to issue session token")
	}
	uc.log.WithContext(ctx).WithFields(map[string]interface{}{
		"uid":      user.ID,
		"provider": user.Provider,
	}).Info("User signed in")
	uc.publish(ctx, eventbus.EventTypeUserSignedIn, user.ID)

	return &AuthResponse{
		User:        user.Sanitized(),
		AccessToken: token,
		ExpiresAt:   uc.now().Add(uc.tokenTTL),
	}, nil
}

func (uc *AuthUsecase) publish(ctx context.Context, eventType, userID string) {
	if uc.bus == nil {
		return
	}
	if err := uc.bus.Publish(ctx, eventbus.NewEvent(eventType, userID, nil, "auth")); err != nil {
		uc.log.WithContext(ctx).Warnf("Failed to publish %s: %v", eventType, err)
	}
}

func (uc *AuthUsecase) requirePasswordSignIn() error {
	if !uc.passwordSignIn {
		return apperrors.NewAppError(apperrors.ErrorTypeInternal, "password sign-in is disabled", http.StatusNotImplemented).
			WithCode("PASSWORD_SIGN_IN_DISABLED")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" || !emailRegex.MatchString(email) {
		return model.ErrInvalidEmail
	}
	return nil
}

// validatePassword requires 8 to 72 bytes with at least one letter and one digit
func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return model.ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return model.ErrWeakPassword
	}
	return nil
}
