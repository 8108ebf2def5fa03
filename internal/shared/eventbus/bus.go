// Package eventbus carries domain events between modules in one process.
// Counter writes publish counter.changed for the realtime hub or the Redis
// feed; sign-in and sign-out are published for the audit log.
package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"thing-counter/internal/shared/logger"
)

const (
	EventTypeCounterChanged = "counter.changed"
	EventTypeUserSignedIn   = "user.signed_in"
	EventTypeUserSignedOut  = "user.signed_out"
)

// Event is something that happened to one user's data
type Event interface {
	Type() string
	UserID() string
	Data() interface{}
	Timestamp() time.Time
	Source() string
}

// Handler reacts to an event. A returned error is retried.
type Handler func(ctx context.Context, event Event) error

// EventBusInterface is what publishers depend on
type EventBusInterface interface {
	Subscribe(eventType string, handler Handler)
	Publish(ctx context.Context, event Event) error
}

// BusConfig tunes retries. Handlers of one event always run in
// subscription order so a user's counter.changed events stay ordered.
type BusConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultBusConfig() BusConfig {
	return BusConfig{MaxRetries: 2, RetryDelay: 50 * time.Millisecond}
}

// EventBus delivers each event to its subscribers before Publish returns
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	config   BusConfig
	log      logger.Logger
}

func NewEventBus(log logger.Logger) *EventBus {
	return NewEventBusWithConfig(log, DefaultBusConfig())
}

func NewEventBusWithConfig(log logger.Logger, config BusConfig) *EventBus {
	if log == nil {
		log = NoopLogger()
	}
	return &EventBus{
		handlers: make(map[string][]Handler),
		config:   config,
		log:      log.WithComponent("eventbus"),
	}
}

func (b *EventBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
	b.log.Debugf("Subscribed handler for %s", eventType)
}

// Publish returns the first handler error after its retries are spent
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type()]...)
	b.mu.RUnlock()

	for i, h := range handlers {
		if err := b.deliver(ctx, event, h, i); err != nil {
			return err
		}
	}
	return nil
}

func (b *EventBus) deliver(ctx context.Context, event Event, handler Handler, idx int) error {
	var err error
	for attempt := 0; attempt <= b.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.config.RetryDelay):
			}
		}
		if err = handler(ctx, event); err == nil {
			return nil
		}
		b.log.WithFields(map[string]interface{}{
			"event":   event.Type(),
			"uid":     event.UserID(),
			"handler": idx,
			"attempt": attempt + 1,
		}).Warnf("Event handler failed: %v", err)
	}
	return fmt.Errorf("%s handler failed after %d attempts: %w", event.Type(), b.config.MaxRetries+1, err)
}

// SubscriberCount is the number of handlers for eventType
func (b *EventBus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

type userEvent struct {
	eventType string
	uid       string
	data      interface{}
	at        time.Time
	source    string
}

// NewEvent creates an event about uid's data, stamped now
func NewEvent(eventType, uid string, data interface{}, source string) Event {
	return &userEvent{eventType: eventType, uid: uid, data: data, at: time.Now(), source: source}
}

func (e *userEvent) Type() string         { return e.eventType }
func (e *userEvent) UserID() string       { return e.uid }
func (e *userEvent) Data() interface{}    { return e.data }
func (e *userEvent) Timestamp() time.Time { return e.at }
func (e *userEvent) Source() string       { return e.source }

type noopLogger struct{}

func (n noopLogger) Debug(args ...interface{})                       {}
func (n noopLogger) Info(args ...interface{})                        {}
func (n noopLogger) Warn(args ...interface{})                        {}
func (n noopLogger) Error(args ...interface{})                       {}
func (n noopLogger) Fatal(args ...interface{})                       {}
func (n noopLogger) Debugf(format string, args ...interface{})       {}
func (n noopLogger) Infof(format string, args ...interface{})        {}
func (n noopLogger) Warnf(format string, args ...interface{})        {}
func (n noopLogger) Errorf(format string, args ...interface{})       {}
func (n noopLogger) Fatalf(format string, args ...interface{})       {}
func (n noopLogger) WithFields(map[string]interface{}) logger.Logger { return n }
func (n noopLogger) WithContext(context.Context) logger.Logger       { return n }
func (n noopLogger) WithComponent(string) logger.Logger              { return n }

// NoopLogger discards everything. Tests and optional loggers use it.
func NoopLogger() logger.Logger {
	return noopLogger{}
}
