package usecase

import (
	"context"
	"fmt"
	"sync"

	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/shared/eventbus"
	"thing-counter/internal/shared/logger"

	"github.com/google/uuid"
)

// RealtimeUsecase is the in-process fan-out of counter changes, keyed by the
// owning user's uid. It serves as the live feed on a single instance.
type RealtimeUsecase interface {
	// Subscribe registers a subscriber for uid. The channel is closed when
	// ctx ends, when the hub closes, or when the subscriber falls behind.
	Subscribe(ctx context.Context, uid string) (<-chan model.Change, error)
	// PublishChange delivers change to every subscriber of uid.
	PublishChange(ctx context.Context, uid string, change model.Change) error
	// HandleEvent adapts PublishChange to the event bus.
	HandleEvent(ctx context.Context, event eventbus.Event) error
	SubscriberCount(uid string) int
	Close()
}

type realtimeUsecaseImpl struct {
	// subscriptions maps a uid to subscriber ids and their channels
	subscriptions map[string]map[string]chan model.Change
	mu            sync.Mutex
	buffer        int
	closed        bool
	done          chan struct{}
	log           logger.Logger
}

// NewRealtimeUsecase creates a hub whose subscriber channels hold buffer changes.
func NewRealtimeUsecase(buffer int, log logger.Logger) RealtimeUsecase {
	if buffer <= 0 {
		buffer = 64
	}
	return &realtimeUsecaseImpl{
		subscriptions: make(map[string]map[string]chan model.Change),
		buffer:        buffer,
		done:          make(chan struct{}),
		log:           log.WithComponent("realtime_hub"),
	}
}

func (uc *realtimeUsecaseImpl) Subscribe(ctx context.Context, uid string) (<-chan model.Change, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.closed {
		return nil, fmt.Errorf("realtime hub is closed")
	}

	subscriberID := uuid.NewString()
	ch := make(chan model.Change, uc.buffer)
	if _, ok := uc.subscriptions[uid]; !ok {
		uc.subscriptions[uid] = make(map[string]chan model.Change)
	}
	uc.subscriptions[uid][subscriberID] = ch

	go func() {
		select {
		case <-ctx.Done():
			uc.unsubscribe(uid, subscriberID)
		case <-uc.done:
		}
	}()

	uc.log.WithFields(map[string]interface{}{
		"uid":           uid,
		"subscriber_id": subscriberID,
	}).Debug("Client subscribed")
	return ch, nil
}

func (uc *realtimeUsecaseImpl) unsubscribe(uid, subscriberID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.removeLocked(uid, subscriberID)
}

// removeLocked closes and forgets a subscriber; uc.mu must be held.
func (uc *realtimeUsecaseImpl) removeLocked(uid, subscriberID string) {
	subscribers, ok := uc.subscriptions[uid]
	if !ok {
		return
	}
	ch, ok := subscribers[subscriberID]
	if !ok {
		return
	}
	close(ch)
	delete(subscribers, subscriberID)
	if len(subscribers) == 0 {
		delete(uc.subscriptions, uid)
	}
}

func (uc *realtimeUsecaseImpl) PublishChange(ctx context.Context, uid string, change model.Change) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	subscribers := uc.subscriptions[uid]
	if len(subscribers) == 0 {
		return nil
	}

	for subID, ch := range subscribers {
		select {
		case ch <- change:
		default:
			// A subscriber that misses a change would diverge from the
			// store, so it is dropped and has to resubscribe.
			uc.log.WithFields(map[string]interface{}{
				"uid":           uid,
				"subscriber_id": subID,
			}).Warn("Subscriber buffer full, evicting")
			uc.removeLocked(uid, subID)
		}
	}
	return nil
}

func (uc *realtimeUsecaseImpl) HandleEvent(ctx context.Context, event eventbus.Event) error {
	ev, ok := event.Data().(model.ChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Data(), event.Type())
	}
	return uc.PublishChange(ctx, ev.UserID, ev.Change)
}

func (uc *realtimeUsecaseImpl) SubscriberCount(uid string) int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.subscriptions[uid])
}

func (uc *realtimeUsecaseImpl) Close() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.closed {
		return
	}
	uc.closed = true
	close(uc.done)
	for uid, subscribers := range uc.subscriptions {
		for subID := range subscribers {
			uc.removeLocked(uid, subID)
		}
	}
}
