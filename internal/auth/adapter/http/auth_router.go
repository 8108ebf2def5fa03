package http

import (
	"time"

	"thing-counter/internal/auth/usecase"
	"thing-counter/internal/shared/contextkeys"
	apperrors "thing-counter/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
)

// AuthHTTPHandler handles HTTP requests for authentication
type AuthHTTPHandler struct {
	usecase        usecase.AuthUsecaseInterface
	cookieName     string
	cookiePath     string
	cookieDomain   string
	cookieMaxAge   int
	cookieSecure   bool
	cookieHTTPOnly bool
	cookieSameSite string
}

// NewAuthHTTPHandler creates a new authentication HTTP handler
func NewAuthHTTPHandler(
	uc usecase.AuthUsecaseInterface,
	cookieName, cookiePath, cookieDomain string,
	cookieMaxAge int,
	cookieSecure, cookieHTTPOnly bool,
	cookieSameSite string,
) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		usecase:        uc,
		cookieName:     cookieName,
		cookiePath:     cookiePath,
		cookieDomain:   cookieDomain,
		cookieMaxAge:   cookieMaxAge,
		cookieSecure:   cookieSecure,
		cookieHTTPOnly: cookieHTTPOnly,
		cookieSameSite: cookieSameSite,
	}
}

// SetupAuthRoutes mounts the sign-in routes. limit guards the public
// endpoints and may be nil.
func (h *AuthHTTPHandler) SetupAuthRoutes(router fiber.Router, middleware *AuthMiddleware, limit fiber.Handler) {
	public := router
	if limit != nil {
		public = router.Group("/", limit)
	}
	public.Post("/google", h.SignInWithGoogle)
	public.Post("/register", h.Register)
	public.Post("/login", h.Login)

	protected := router.Group("/", middleware.Protect())
	protected.Post("/logout", h.Logout)
	protected.Get("/me", h.GetCurrentUser)
}

// SignInWithGoogle exchanges a Firebase ID token for a session
func (h *AuthHTTPHandler) SignInWithGoogle(c *fiber.Ctx) error {
	var req usecase.GoogleSignInRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperrors.NewValidationError("invalid request body"))
	}

	response, err := h.usecase.SignInWithGoogle(c.UserContext(), req.IDToken)
	if err != nil {
		return writeError(c, err)
	}

	h.setCookie(c, response.AccessToken)
	return c.JSON(response)
}

// Register handles user registration
func (h *AuthHTTPHandler) Register(c *fiber.Ctx) error {
	var req usecase.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperrors.NewValidationError("invalid request body"))
	}

	response, err := h.usecase.Register(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}

	h.setCookie(c, response.AccessToken)
	return c.Status(fiber.StatusCreated).JSON(response)
}

// Login handles user login
func (h *AuthHTTPHandler) Login(c *fiber.Ctx) error {
	var req usecase.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperrors.NewValidationError("invalid request body"))
	}

	response, err := h.usecase.Login(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}

	h.setCookie(c, response.AccessToken)
	return c.JSON(response)
}

// Logout drops the session cookie
func (h *AuthHTTPHandler) Logout(c *fiber.Ctx) error {
	userID, _ := c.Locals(contextkeys.LocalsUserID).(string)
	if err := h.usecase.Logout(c.UserContext(), userID); err != nil {
		return writeError(c, err)
	}

	h.clearCookie(c)
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the signed-in user's profile
func (h *AuthHTTPHandler) GetCurrentUser(c *fiber.Ctx) error {
	userID, _ := c.Locals(contextkeys.LocalsUserID).(string)
	user, err := h.usecase.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

func (h *AuthHTTPHandler) setCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		MaxAge:   h.cookieMaxAge,
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
		Expires:  time.Now().Add(time.Duration(h.cookieMaxAge) * time.Second),
	})
}

func (h *AuthHTTPHandler) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		MaxAge:   -1,
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}
