package repository

import (
	"context"

	"thing-counter/internal/counter/domain/model"
)

// CounterRepository stores counters under users/{uid}/counters.
// Missing documents are reported as model.ErrCounterNotFound.
type CounterRepository interface {
	// Create writes {name, value: 0, timestamp: server time} under a new id.
	Create(ctx context.Context, uid, name string) (*model.Counter, error)
	Get(ctx context.Context, uid, id string) (*model.Counter, error)
	// List returns the user's counters ordered by creation time.
	List(ctx context.Context, uid string) ([]*model.Counter, error)
	// SetValue overwrites value, used by the read-modify-write path.
	SetValue(ctx context.Context, uid, id string, value int64) (*model.Counter, error)
	// Increment adds delta server-side in a single atomic write.
	Increment(ctx context.Context, uid, id string, delta int64) (*model.Counter, error)
	Rename(ctx context.Context, uid, id, name string) (*model.Counter, error)
	Delete(ctx context.Context, uid, id string) (*model.Counter, error)
	Ping(ctx context.Context) error
}
