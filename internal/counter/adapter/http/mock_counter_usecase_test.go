package http

import (
	"context"

	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/shared/contextkeys"
	"thing-counter/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
)

type mockCounterUsecase struct {
	mock.Mock
}

func (m *mockCounterUsecase) CreateCounter(ctx context.Context, uid, name string) (*model.Counter, error) {
	args := m.Called(ctx, uid, name)
	return counterOrNil(args.Get(0)), args.Error(1)
}

func (m *mockCounterUsecase) GetCounter(ctx context.Context, uid, id string) (*model.Counter, error) {
	args := m.Called(ctx, uid, id)
	return counterOrNil(args.Get(0)), args.Error(1)
}

func (m *mockCounterUsecase) ListCounters(ctx context.Context, uid string) ([]*model.Counter, error) {
	args := m.Called(ctx, uid)
	if v := args.Get(0); v != nil {
		return v.([]*model.Counter), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCounterUsecase) Increase(ctx context.Context, uid, id string, delta int64) (*model.Counter, error) {
	args := m.Called(ctx, uid, id, delta)
	return counterOrNil(args.Get(0)), args.Error(1)
}

func (m *mockCounterUsecase) ChangeCounterName(ctx context.Context, uid, id, name string) (*model.Counter, error) {
	args := m.Called(ctx, uid, id, name)
	return counterOrNil(args.Get(0)), args.Error(1)
}

func (m *mockCounterUsecase) DeleteCounter(ctx context.Context, uid, id string) error {
	return m.Called(ctx, uid, id).Error(0)
}

func (m *mockCounterUsecase) Watch(ctx context.Context, uid string) (<-chan model.Snapshot, error) {
	args := m.Called(ctx, uid)
	if v := args.Get(0); v != nil {
		return v.(<-chan model.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func counterOrNil(v interface{}) *model.Counter {
	if v == nil {
		return nil
	}
	return v.(*model.Counter)
}

// fakeProtect authenticates the caller named by the X-Test-UID header
func fakeProtect(c *fiber.Ctx) error {
	uid := c.Get("X-Test-UID")
	if uid == "" {
		uid = c.Query("uid")
	}
	if uid == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "AUTHENTICATION_ERROR"})
	}
	c.Locals(contextkeys.LocalsUserID, uid)
	c.SetUserContext(utils.WithUserID(c.UserContext(), uid))
	return c.Next()
}
