package usecase

import (
	"context"

	"thing-counter/internal/counter/domain/model"

	"github.com/stretchr/testify/mock"
)

type mockCounterRepo struct {
	mock.Mock
}

func (m *mockCounterRepo) Create(ctx context.Context, uid, name string) (*model.Counter, error) {
	args := m.Called(ctx, uid, name)
	return counterArg(args, 0), args.Error(1)
}

func (m *mockCounterRepo) Get(ctx context.Context, uid, id string) (*model.Counter, error) {
	args := m.Called(ctx, uid, id)
	return counterArg(args, 0), args.Error(1)
}

func (m *mockCounterRepo) List(ctx context.Context, uid string) ([]*model.Counter, error) {
	args := m.Called(ctx, uid)
	if v := args.Get(0); v != nil {
		return v.([]*model.Counter), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCounterRepo) SetValue(ctx context.Context, uid, id string, value int64) (*model.Counter, error) {
	args := m.Called(ctx, uid, id, value)
	return counterArg(args, 0), args.Error(1)
}

func (m *mockCounterRepo) Increment(ctx context.Context, uid, id string, delta int64) (*model.Counter, error) {
	args := m.Called(ctx, uid, id, delta)
	return counterArg(args, 0), args.Error(1)
}

func (m *mockCounterRepo) Rename(ctx context.Context, uid, id, name string) (*model.Counter, error) {
	args := m.Called(ctx, uid, id, name)
	return counterArg(args, 0), args.Error(1)
}

func (m *mockCounterRepo) Delete(ctx context.Context, uid, id string) (*model.Counter, error) {
	args := m.Called(ctx, uid, id)
	return counterArg(args, 0), args.Error(1)
}

func (m *mockCounterRepo) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func counterArg(args mock.Arguments, i int) *model.Counter {
	if v := args.Get(i); v != nil {
		return v.(*model.Counter)
	}
	return nil
}

type mockChangeFeed struct {
	mock.Mock
}

func (m *mockChangeFeed) Watch(ctx context.Context, uid string) (<-chan model.Snapshot, error) {
	args := m.Called(ctx, uid)
	if v := args.Get(0); v != nil {
		return v.(<-chan model.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}
