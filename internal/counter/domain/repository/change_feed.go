package repository

import (
	"context"

	"thing-counter/internal/counter/domain/model"
)

// ChangeFeed is a live query listener over users/{uid}/counters. The first
// snapshot holds the current documents as added changes. The returned
// channel is closed once ctx is done or the feed fails.
type ChangeFeed interface {
	Watch(ctx context.Context, uid string) (<-chan model.Snapshot, error)
}

// LiveFeed delivers only changes that happen after Subscribe returns.
type LiveFeed interface {
	Subscribe(ctx context.Context, uid string) (<-chan model.Change, error)
}
