package firestoredb

import (
	"context"

	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/shared/docpath"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CounterRepository implements repository.CounterRepository on Cloud
// Firestore at users/{uid}/counters.
type CounterRepository struct {
	client *firestore.Client
}

func NewCounterRepository(client *firestore.Client) *CounterRepository {
	return &CounterRepository{client: client}
}

func (r *CounterRepository) collection(uid string) *firestore.CollectionRef {
	return r.client.Collection(docpath.UsersCollection).Doc(uid).Collection(docpath.CountersCollection)
}

func (r *CounterRepository) Create(ctx context.Context, uid, name string) (*model.Counter, error) {
	ref, _, err := r.collection(uid).Add(ctx, map[string]interface{}{
		"name":      name,
		"value":     0,
		"timestamp": firestore.ServerTimestamp,
	})
	if err != nil {
		return nil, err
	}
	return r.read(ctx, uid, ref)
}

func (r *CounterRepository) Get(ctx context.Context, uid, id string) (*model.Counter, error) {
	return r.read(ctx, uid, r.collection(uid).Doc(id))
}

func (r *CounterRepository) List(ctx context.Context, uid string) ([]*model.Counter, error) {
	iter := r.collection(uid).OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	counters := make([]*model.Counter, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		c, err := decode(uid, snap)
		if err != nil {
			return nil, err
		}
		counters = append(counters, c)
	}
	return counters, nil
}

func (r *CounterRepository) SetValue(ctx context.Context, uid, id string, value int64) (*model.Counter, error) {
	return r.update(ctx, uid, id, firestore.Update{Path: "value", Value: value})
}

func (r *CounterRepository) Increment(ctx context.Context, uid, id string, delta int64) (*model.Counter, error) {
	return r.update(ctx, uid, id, firestore.Update{Path: "value", Value: firestore.Increment(delta)})
}

func (r *CounterRepository) Rename(ctx context.Context, uid, id, name string) (*model.Counter, error) {
	return r.update(ctx, uid, id, firestore.Update{Path: "name", Value: name})
}

func (r *CounterRepository) Delete(ctx context.Context, uid, id string) (*model.Counter, error) {
	ref := r.collection(uid).Doc(id)
	counter, err := r.read(ctx, uid, ref)
	if err != nil {
		return nil, err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return nil, notFound(err)
	}
	return counter, nil
}

// Ping issues a single-document read against the users collection
func (r *CounterRepository) Ping(ctx context.Context) error {
	iter := r.client.Collection(docpath.UsersCollection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return err
	}
	return nil
}

// update fails with NotFound on a missing document, unlike Set
func (r *CounterRepository) update(ctx context.Context, uid, id string, u firestore.Update) (*model.Counter, error) {
	ref := r.collection(uid).Doc(id)
	if _, err := ref.Update(ctx, []firestore.Update{u}); err != nil {
		return nil, notFound(err)
	}
	return r.read(ctx, uid, ref)
}

func (r *CounterRepository) read(ctx context.Context, uid string, ref *firestore.DocumentRef) (*model.Counter, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return decode(uid, snap)
}

func decode(uid string, snap *firestore.DocumentSnapshot) (*model.Counter, error) {
	var c model.Counter
	if err := snap.DataTo(&c); err != nil {
		return nil, err
	}
	c.ID = snap.Ref.ID
	c.UserID = uid
	return &c, nil
}

func notFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return model.ErrCounterNotFound
	}
	return err
}
