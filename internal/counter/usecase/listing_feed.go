package usecase

import (
	"context"
	"time"

	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/counter/domain/repository"
	"thing-counter/internal/shared/docpath"
)

// ListingFeed turns a LiveFeed into a ChangeFeed: it subscribes first, then
// lists the collection so no write between the two is lost. A write racing
// the listing may show up twice, once in the listing and once as a live
// change, which CounterList.Apply absorbs.
type ListingFeed struct {
	repo repository.CounterRepository
	live repository.LiveFeed
}

func NewListingFeed(repo repository.CounterRepository, live repository.LiveFeed) *ListingFeed {
	return &ListingFeed{repo: repo, live: live}
}

func (f *ListingFeed) Watch(ctx context.Context, uid string) (<-chan model.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)

	changes, err := f.live.Subscribe(ctx, uid)
	if err != nil {
		cancel()
		return nil, err
	}
	counters, err := f.repo.List(ctx, uid)
	if err != nil {
		cancel()
		return nil, err
	}

	path := docpath.CollectionPath(uid)
	out := make(chan model.Snapshot, 1)
	go func() {
		defer cancel()
		defer close(out)

		initial := model.InitialSnapshot(path, counters, time.Now().UTC())
		select {
		case out <- initial:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				snap := model.Snapshot{Path: path, Changes: []model.Change{change}, ReadTime: time.Now().UTC()}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
