package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"thing-counter/internal/counter/config"
	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/shared/eventbus"
	"thing-counter/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

const (
	changeField  = "change"
	readBatch    = 100
	blockTimeout = 2 * time.Second
	retryDelay   = 500 * time.Millisecond
)

// RedisStreamFeed is a LiveFeed shared by every server instance. Writes are
// appended to one capped stream per user and subscribers tail it.
type RedisStreamFeed struct {
	client *redis.Client
	prefix string
	maxLen int64
	buffer int
	log    logger.Logger
}

func NewRedisStreamFeed(client *redis.Client, cfg config.RedisConfig, buffer int, log logger.Logger) *RedisStreamFeed {
	if buffer <= 0 {
		buffer = 64
	}
	return &RedisStreamFeed{
		client: client,
		prefix: cfg.StreamPrefix,
		maxLen: cfg.StreamMaxLength,
		buffer: buffer,
		log:    log.WithComponent("redis_feed"),
	}
}

// StreamKey returns the stream holding uid's changes
func (f *RedisStreamFeed) StreamKey(uid string) string {
	return f.prefix + uid
}

// HandleEvent appends a counter.changed event to the owner's stream.
func (f *RedisStreamFeed) HandleEvent(ctx context.Context, event eventbus.Event) error {
	ev, ok := event.Data().(model.ChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Data(), event.Type())
	}
	return f.Append(ctx, ev.UserID, ev.Change)
}

// Append writes change to the stream with XADD MAXLEN ~
func (f *RedisStreamFeed) Append(ctx context.Context, uid string, change model.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: f.StreamKey(uid),
		MaxLen: f.maxLen,
		Approx: true,
		Values: map[string]interface{}{changeField: payload},
	}).Err()
}

// Subscribe tails uid's stream from its current end.
func (f *RedisStreamFeed) Subscribe(ctx context.Context, uid string) (<-chan model.Change, error) {
	key := f.StreamKey(uid)

	lastID := "0-0"
	latest, err := f.client.XRevRangeN(ctx, key, "+", "-", 1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read stream tail: %w", err)
	}
	if len(latest) > 0 {
		lastID = latest[0].ID
	}

	out := make(chan model.Change, f.buffer)
	go f.tail(ctx, key, lastID, out)
	return out, nil
}

func (f *RedisStreamFeed) tail(ctx context.Context, key, lastID string, out chan<- model.Change) {
	defer close(out)

	for ctx.Err() == nil {
		streams, err := f.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{key, lastID},
			Count:   readBatch,
			Block:   blockTimeout,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.Warnf("XREAD on %s failed: %v", key, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				change, err := decodeChange(msg)
				if err != nil {
					f.log.Warnf("Skipping stream entry %s: %v", msg.ID, err)
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func decodeChange(msg redis.XMessage) (model.Change, error) {
	var change model.Change
	raw, ok := msg.Values[changeField]
	if !ok {
		return change, fmt.Errorf("missing %q field", changeField)
	}
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return change, fmt.Errorf("unexpected %q type %T", changeField, raw)
	}
	err := json.Unmarshal(data, &change)
	return change, err
}
