package counter

import (
	"context"
	"fmt"

	"thing-counter/internal/counter/adapter/feed"
	httpadapter "thing-counter/internal/counter/adapter/http"
	"thing-counter/internal/counter/adapter/persistence/firestoredb"
	"thing-counter/internal/counter/adapter/persistence/mongodb"
	"thing-counter/internal/counter/config"
	"thing-counter/internal/counter/domain/repository"
	"thing-counter/internal/counter/usecase"
	"thing-counter/internal/platform"
	"thing-counter/internal/shared/eventbus"
	"thing-counter/internal/shared/logger"

	"cloud.google.com/go/firestore"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Storage drivers
const (
	DriverMongo     = platform.DriverMongo
	DriverFirestore = platform.DriverFirestore
)

// Dependencies are the shared connections the counter module is built on.
// Only the client matching StorageDriver is required.
type Dependencies struct {
	StorageDriver string
	Mongo         *mongo.Database
	Firestore     *firestore.Client
	Redis         *redis.Client
	Bus           *eventbus.EventBus
	Logger        logger.Logger
}

// CounterModule owns the counter storage, the change feed and the API surface
type CounterModule struct {
	Config     *config.Config
	Repository repository.CounterRepository
	Feed       repository.ChangeFeed
	Usecase    usecase.CounterUsecase
	FeedKind   string
	Logger     logger.Logger

	hub         usecase.RealtimeUsecase
	redisClient *redis.Client
	ownsRedis   bool
}

// NewCounterModule creates the counter module for the configured storage
// driver and change feed.
func NewCounterModule(ctx context.Context, cfg *config.Config, deps Dependencies) (*CounterModule, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewLogger()
	}
	bus := deps.Bus
	if bus == nil {
		bus = eventbus.NewEventBus(log)
	}

	m := &CounterModule{Config: cfg, Logger: log}

	switch deps.StorageDriver {
	case DriverFirestore:
		if deps.Firestore == nil {
			return nil, fmt.Errorf("firestore storage selected but no firestore client configured")
		}
		m.Repository = firestoredb.NewCounterRepository(deps.Firestore)
	case DriverMongo, "":
		if deps.Mongo == nil {
			return nil, fmt.Errorf("mongo storage selected but no database configured")
		}
		repo, err := mongodb.NewCounterRepository(ctx, deps.Mongo)
		if err != nil {
			return nil, err
		}
		m.Repository = repo
	default:
		return nil, fmt.Errorf("unknown storage driver %q", deps.StorageDriver)
	}

	m.FeedKind = cfg.ResolveFeed(deps.StorageDriver)
	switch m.FeedKind {
	case config.FeedFirestore:
		if deps.Firestore == nil {
			return nil, fmt.Errorf("firestore change feed requires the firestore storage driver")
		}
		m.Feed = firestoredb.NewSnapshotFeed(deps.Firestore, log)
	case config.FeedRedis:
		m.redisClient = deps.Redis
		if m.redisClient == nil {
			m.redisClient = config.NewRedisClient(&cfg.Redis)
			m.ownsRedis = true
		}
		redisFeed := feed.NewRedisStreamFeed(m.redisClient, cfg.Redis, cfg.Realtime.ClientSendChannelBuffer, log)
		bus.Subscribe(eventbus.EventTypeCounterChanged, redisFeed.HandleEvent)
		m.Feed = usecase.NewListingFeed(m.Repository, redisFeed)
	default:
		m.hub = usecase.NewRealtimeUsecase(cfg.Realtime.ClientSendChannelBuffer, log)
		bus.Subscribe(eventbus.EventTypeCounterChanged, m.hub.HandleEvent)
		m.Feed = usecase.NewListingFeed(m.Repository, m.hub)
	}

	policy, err := usecase.NewCELAccessPolicy(cfg.ReadRule, cfg.WriteRule)
	if err != nil {
		m.Stop()
		return nil, fmt.Errorf("failed to compile access rules: %w", err)
	}

	m.Usecase = usecase.NewCounterUsecase(m.Repository, m.Feed, policy, bus, cfg.AtomicIncrement, log)
	log.WithFields(map[string]interface{}{
		"storage":          deps.StorageDriver,
		"change_feed":      m.FeedKind,
		"atomic_increment": cfg.AtomicIncrement,
	}).Info("Counter module initialized")
	return m, nil
}

// RegisterRoutes mounts REST routes on api and the websocket listener on root
func (m *CounterModule) RegisterRoutes(root, api fiber.Router, protect fiber.Handler) {
	httpadapter.NewCounterHandler(m.Usecase, m.Logger).RegisterRoutes(api, protect)
	httpadapter.NewWSHandler(m.Usecase, m.Config.Realtime.WebSocketPath, m.Logger).RegisterRoutes(root, protect)
}

// Ping checks storage and, when used, Redis
func (m *CounterModule) Ping(ctx context.Context) error {
	if err := m.Repository.Ping(ctx); err != nil {
		return fmt.Errorf("counter storage: %w", err)
	}
	if m.redisClient != nil {
		if err := m.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Stop closes the hub, which ends every open listener, and the owned Redis client
func (m *CounterModule) Stop() error {
	if m.hub != nil {
		m.hub.Close()
	}
	if m.ownsRedis && m.redisClient != nil {
		return m.redisClient.Close()
	}
	return nil
}
