package http

import (
	"errors"
	"strings"
	"time"

	"thing-counter/internal/auth/usecase"
	"thing-counter/internal/shared/contextkeys"
	apperrors "thing-counter/internal/shared/errors"
	"thing-counter/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

var errNoToken = errors.New("no token provided")

// AuthMiddleware provides authentication middleware for Fiber
type AuthMiddleware struct {
	usecase    usecase.AuthUsecaseInterface
	cookieName string
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(uc usecase.AuthUsecaseInterface, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		usecase:    uc,
		cookieName: cookieName,
	}
}

// CORS allows the listed origins to call the API with credentials
func (m *AuthMiddleware) CORS(allowOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,X-Request-ID",
		AllowCredentials: allowOrigins != "*",
		MaxAge:           86400,
	})
}

// SecurityHeaders adds security headers
func (m *AuthMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// RateLimiter limits sign-in attempts per client address
func (m *AuthMiddleware) RateLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Get("X-Forwarded-For", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(apperrors.Response{
				Error:   "RATE_LIMITED",
				Message: "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// RequestID middleware
func (m *AuthMiddleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		ContextKey: contextkeys.LocalsRequestID,
	})
}

// RequestContext copies the request id set by RequestID into the user context
func (m *AuthMiddleware) RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(contextkeys.LocalsRequestID).(string); ok && id != "" {
			c.SetUserContext(utils.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// Protect returns middleware that requires a valid session token. The
// caller is stored both in Locals, for websocket handlers, and in the user
// context.
func (m *AuthMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := m.extractToken(c)
		if err != nil {
			return writeError(c, apperrors.NewAuthenticationError("authentication required").WithCause(err))
		}

		claims, err := m.usecase.ValidateToken(c.UserContext(), token)
		if err != nil {
			return writeError(c, apperrors.NewAuthenticationError("invalid token").WithCause(err))
		}

		c.Locals(contextkeys.LocalsUserID, claims.UserID)
		c.Locals(contextkeys.LocalsUserEmail, claims.Email)

		ctx := utils.WithUserID(c.UserContext(), claims.UserID)
		ctx = utils.WithUserEmail(ctx, claims.Email)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// extractToken reads the bearer header, then the session cookie, then the
// token query parameter used by websocket clients.
func (m *AuthMiddleware) extractToken(c *fiber.Ctx) (string, error) {
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		const prefix = "Bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return strings.TrimSpace(auth[len(prefix):]), nil
		}
		return "", errors.New("malformed authorization header")
	}
	if token := c.Cookies(m.cookieName); token != "" {
		return token, nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", errNoToken
}

func writeError(c *fiber.Ctx, err error) error {
	status, body := apperrors.ToResponse(err)
	return c.Status(status).JSON(body)
}
