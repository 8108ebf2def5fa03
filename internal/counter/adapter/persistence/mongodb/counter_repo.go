package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"thing-counter/internal/counter/domain/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CountersCollection holds every user's counters, keyed by a UUID _id and
// scoped by the uid field.
const CountersCollection = "counters"

// CounterRepository implements repository.CounterRepository on MongoDB
type CounterRepository struct {
	db       *mongo.Database
	counters *mongo.Collection
	now      func() time.Time
}

// NewCounterRepository creates the repository and its (uid, timestamp) index
func NewCounterRepository(ctx context.Context, db *mongo.Database) (*CounterRepository, error) {
	repo := &CounterRepository{
		db:       db,
		counters: db.Collection(CountersCollection),
		now:      func() time.Time { return time.Now().UTC() },
	}

	ownerIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "uid", Value: 1}, {Key: "timestamp", Value: 1}},
	}
	if _, err := repo.counters.Indexes().CreateOne(ctx, ownerIndex); err != nil {
		return nil, fmt.Errorf("failed to create counters index: %w", err)
	}
	return repo, nil
}

func (r *CounterRepository) Create(ctx context.Context, uid, name string) (*model.Counter, error) {
	counter := &model.Counter{
		ID:        uuid.NewString(),
		UserID:    uid,
		Name:      name,
		Value:     0,
		Timestamp: r.now(),
	}
	if _, err := r.counters.InsertOne(ctx, counter); err != nil {
		return nil, err
	}
	return counter, nil
}

func (r *CounterRepository) Get(ctx context.Context, uid, id string) (*model.Counter, error) {
	var counter model.Counter
	if err := r.counters.FindOne(ctx, ownerFilter(uid, id)).Decode(&counter); err != nil {
		return nil, notFound(err)
	}
	return &counter, nil
}

func (r *CounterRepository) List(ctx context.Context, uid string) ([]*model.Counter, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.counters.Find(ctx, bson.M{"uid": uid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counters := make([]*model.Counter, 0)
	for cursor.Next(ctx) {
		var c model.Counter
		if err := cursor.Decode(&c); err != nil {
			return nil, err
		}
		counters = append(counters, &c)
	}
	return counters, cursor.Err()
}

func (r *CounterRepository) SetValue(ctx context.Context, uid, id string, value int64) (*model.Counter, error) {
	return r.update(ctx, uid, id, bson.M{"$set": bson.M{"value": value}})
}

func (r *CounterRepository) Increment(ctx context.Context, uid, id string, delta int64) (*model.Counter, error) {
	return r.update(ctx, uid, id, bson.M{"$inc": bson.M{"value": delta}})
}

func (r *CounterRepository) Rename(ctx context.Context, uid, id, name string) (*model.Counter, error) {
	return r.update(ctx, uid, id, bson.M{"$set": bson.M{"name": name}})
}

func (r *CounterRepository) Delete(ctx context.Context, uid, id string) (*model.Counter, error) {
	var counter model.Counter
	if err := r.counters.FindOneAndDelete(ctx, ownerFilter(uid, id)).Decode(&counter); err != nil {
		return nil, notFound(err)
	}
	return &counter, nil
}

func (r *CounterRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

func (r *CounterRepository) update(ctx context.Context, uid, id string, update bson.M) (*model.Counter, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var counter model.Counter
	if err := r.counters.FindOneAndUpdate(ctx, ownerFilter(uid, id), update, opts).Decode(&counter); err != nil {
		return nil, notFound(err)
	}
	return &counter, nil
}

func ownerFilter(uid, id string) bson.M {
	return bson.M{"_id": id, "uid": uid}
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ErrCounterNotFound
	}
	return err
}
