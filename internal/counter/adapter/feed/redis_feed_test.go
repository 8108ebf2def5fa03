package feed

import (
	"context"
	"os"
	"testing"
	"time"

	"thing-counter/internal/counter/config"
	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/shared/eventbus"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChange(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"change": `{"type":"modified","counter":{"id":"c1","uid":"u1","name":"Laps","value":3,"timestamp":"2024-01-01T00:00:00Z"}}`,
	}}
	change, err := decodeChange(msg)
	require.NoError(t, err)
	assert.Equal(t, model.ChangeModified, change.Type)
	assert.EqualValues(t, 3, change.Counter.Value)

	_, err = decodeChange(redis.XMessage{ID: "2-0", Values: map[string]interface{}{}})
	assert.Error(t, err)
	_, err = decodeChange(redis.XMessage{ID: "3-0", Values: map[string]interface{}{"change": 12}})
	assert.Error(t, err)
}

func TestStreamKey(t *testing.T) {
	f := NewRedisStreamFeed(nil, config.DefaultConfig().Redis, 0, eventbus.NoopLogger())
	assert.Equal(t, "thingcounter:changes:u1", f.StreamKey("u1"))
}

func TestRedisStreamFeed_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	cfg := config.DefaultConfig().Redis
	cfg.StreamPrefix = "thingcounter:test:" + time.Now().Format("150405.000000") + ":"
	f := NewRedisStreamFeed(client, cfg, 8, eventbus.NoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer client.Del(context.Background(), f.StreamKey("u1"))

	before := model.Change{Type: model.ChangeAdded, Counter: model.Counter{ID: "old"}}
	require.NoError(t, f.Append(ctx, "u1", before))

	changes, err := f.Subscribe(ctx, "u1")
	require.NoError(t, err)

	bus := eventbus.NewEventBus(eventbus.NoopLogger())
	bus.Subscribe(eventbus.EventTypeCounterChanged, f.HandleEvent)
	after := model.Change{Type: model.ChangeModified, Counter: model.Counter{ID: "c1", Value: 1}}
	require.NoError(t, bus.Publish(ctx, eventbus.NewEvent(eventbus.EventTypeCounterChanged, "u1", model.ChangeEvent{UserID: "u1", Change: after}, "test")))

	select {
	case got := <-changes:
		assert.Equal(t, "c1", got.Counter.ID)
		assert.EqualValues(t, 1, got.Counter.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("no change from stream")
	}
}
