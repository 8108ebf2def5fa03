package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
)

// Change feed kinds
const (
	FeedAuto      = "auto"
	FeedFirestore = "firestore"
	FeedMemory    = "memory"
	FeedRedis     = "redis"
)

// Default access rules, evaluated with CEL
const (
	DefaultReadRule  = `auth.uid == path.uid`
	DefaultWriteRule = `auth.uid == path.uid && (!has(request.name) || size(request.name) <= 100)`
)

// RealtimeConfig holds configuration of the websocket listener endpoint.
type RealtimeConfig struct {
	// WebSocketPath is the endpoint path for websocket connections.
	WebSocketPath string `env:"WEBSOCKET_PATH" envDefault:"/ws/v1/listen"`
	// ClientSendChannelBuffer is the per-subscriber buffer; a subscriber that
	// falls this far behind is evicted.
	ClientSendChannelBuffer int `env:"CLIENT_SEND_CHANNEL_BUFFER" envDefault:"64"`
}

// RedisConfig configures the Redis Streams change feed.
type RedisConfig struct {
	Enabled         bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host            string `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool   `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime string `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`
	StreamMaxLength int64  `env:"REDIS_STREAM_MAX_LENGTH" envDefault:"1000"`
	StreamPrefix    string `env:"REDIS_STREAM_PREFIX" envDefault:"thingcounter:changes:"`
}

// GetAddr returns host:port
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Config holds all configuration for the counter module.
type Config struct {
	ChangeFeed      string `env:"CHANGE_FEED" envDefault:"auto"`
	AtomicIncrement bool   `env:"ATOMIC_INCREMENT" envDefault:"false"`
	ReadRule        string `env:"READ_RULE"`
	WriteRule       string `env:"WRITE_RULE"`

	Realtime RealtimeConfig
	Redis    RedisConfig
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load counter configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Realtime); err != nil {
		return nil, errors.New("failed to load realtime configuration from environment: " + err.Error())
	}
	if err := env.Parse(&cfg.Redis); err != nil {
		return nil, errors.New("failed to load redis configuration from environment: " + err.Error())
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config with default values, suitable for tests.
func DefaultConfig() *Config {
	cfg := &Config{
		ChangeFeed: FeedAuto,
		Realtime: RealtimeConfig{
			WebSocketPath:           "/ws/v1/listen",
			ClientSendChannelBuffer: 64,
		},
		Redis: RedisConfig{
			Host:            "localhost",
			Port:            "6379",
			MaxRetries:      3,
			PoolSize:        10,
			MinIdleConns:    2,
			ConnMaxIdleTime: "30m",
			ConnMaxLifetime: "1h",
			StreamMaxLength: 1000,
			StreamPrefix:    "thingcounter:changes:",
		},
	}
	_ = cfg.normalize()
	return cfg
}

func (c *Config) normalize() error {
	c.ChangeFeed = strings.ToLower(strings.TrimSpace(c.ChangeFeed))
	switch c.ChangeFeed {
	case "":
		c.ChangeFeed = FeedAuto
	case FeedAuto, FeedFirestore, FeedMemory, FeedRedis:
	default:
		return fmt.Errorf("CHANGE_FEED must be one of auto, firestore, memory, redis; got %q", c.ChangeFeed)
	}
	if c.ReadRule == "" {
		c.ReadRule = DefaultReadRule
	}
	if c.WriteRule == "" {
		c.WriteRule = DefaultWriteRule
	}
	if c.Realtime.WebSocketPath == "" {
		c.Realtime.WebSocketPath = "/ws/v1/listen"
	}
	if c.Realtime.ClientSendChannelBuffer <= 0 {
		c.Realtime.ClientSendChannelBuffer = 64
	}
	if c.Redis.StreamMaxLength <= 0 {
		c.Redis.StreamMaxLength = 1000
	}
	if c.ChangeFeed == FeedRedis {
		c.Redis.Enabled = true
	}
	return nil
}

// ResolveFeed picks the concrete feed kind for the given storage driver.
func (c *Config) ResolveFeed(storageDriver string) string {
	if c.ChangeFeed != FeedAuto {
		return c.ChangeFeed
	}
	switch {
	case storageDriver == FeedFirestore:
		return FeedFirestore
	case c.Redis.Enabled:
		return FeedRedis
	default:
		return FeedMemory
	}
}
