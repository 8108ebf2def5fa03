package firebase

import "github.com/gofiber/fiber/v2"

// WebConfigHandler serves the Firebase web config at GET /config
type WebConfigHandler struct {
	cfg WebConfig
}

func NewWebConfigHandler(cfg WebConfig) *WebConfigHandler {
	return &WebConfigHandler{cfg: cfg}
}

func (h *WebConfigHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/config", h.GetConfig)
}

func (h *WebConfigHandler) GetConfig(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return c.JSON(h.cfg)
}
