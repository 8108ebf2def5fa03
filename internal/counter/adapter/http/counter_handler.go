package http

import (
	"thing-counter/internal/counter/usecase"
	"thing-counter/internal/shared/docpath"
	apperrors "thing-counter/internal/shared/errors"
	"thing-counter/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// CounterHandler exposes the counter use cases over REST
type CounterHandler struct {
	uc  usecase.CounterUsecase
	log logger.Logger
}

type createCounterRequest struct {
	Name string `json:"name"`
}

type renameCounterRequest struct {
	Name string `json:"name"`
}

type incrementRequest struct {
	Delta *int64 `json:"delta"`
}

func NewCounterHandler(uc usecase.CounterUsecase, log logger.Logger) *CounterHandler {
	return &CounterHandler{uc: uc, log: log.WithComponent("counter_http")}
}

// RegisterRoutes mounts the counter routes under router, behind protect
func (h *CounterHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	counters := router.Group("/users/:uid/counters", protect)
	counters.Get("/", h.ListCounters)
	counters.Post("/", h.CreateCounter)
	counters.Get("/:id", h.GetCounter)
	counters.Patch("/:id", h.RenameCounter)
	counters.Delete("/:id", h.DeleteCounter)
	counters.Post("/:id/increment", h.IncrementCounter)
}

func (h *CounterHandler) ListCounters(c *fiber.Ctx) error {
	uid, err := pathParams(c, false)
	if err != nil {
		return writeError(c, err)
	}
	counters, err := h.uc.ListCounters(c.UserContext(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"counters": counters})
}

func (h *CounterHandler) CreateCounter(c *fiber.Ctx) error {
	uid, err := pathParams(c, false)
	if err != nil {
		return writeError(c, err)
	}
	var req createCounterRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}

	counter, err := h.uc.CreateCounter(c.UserContext(), uid, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(counter)
}

func (h *CounterHandler) GetCounter(c *fiber.Ctx) error {
	uid, err := pathParams(c, true)
	if err != nil {
		return writeError(c, err)
	}
	counter, err := h.uc.GetCounter(c.UserContext(), uid, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(counter)
}

func (h *CounterHandler) IncrementCounter(c *fiber.Ctx) error {
	uid, err := pathParams(c, true)
	if err != nil {
		return writeError(c, err)
	}
	var req incrementRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}
	delta := int64(1)
	if req.Delta != nil {
		delta = *req.Delta
	}

	counter, err := h.uc.Increase(c.UserContext(), uid, c.Params("id"), delta)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(counter)
}

func (h *CounterHandler) RenameCounter(c *fiber.Ctx) error {
	uid, err := pathParams(c, true)
	if err != nil {
		return writeError(c, err)
	}
	var req renameCounterRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}

	counter, err := h.uc.ChangeCounterName(c.UserContext(), uid, c.Params("id"), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(counter)
}

func (h *CounterHandler) DeleteCounter(c *fiber.Ctx) error {
	uid, err := pathParams(c, true)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.uc.DeleteCounter(c.UserContext(), uid, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// pathParams validates :uid and, when withID is set, :id
func pathParams(c *fiber.Ctx, withID bool) (string, error) {
	uid := c.Params("uid")
	if !docpath.IsValidID(uid) {
		return "", apperrors.NewValidationError("invalid user id").WithCause(apperrors.ErrInvalidPath)
	}
	if withID && !docpath.IsValidID(c.Params("id")) {
		return "", apperrors.NewValidationError("invalid counter id").WithCause(apperrors.ErrInvalidPath)
	}
	return uid, nil
}

// writeError renders err as {"error": type, "message": text}
func writeError(c *fiber.Ctx, err error) error {
	status, body := apperrors.ToResponse(err)
	return c.Status(status).JSON(body)
}
