package firestoredb

import (
	"context"

	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/shared/docpath"
	"thing-counter/internal/shared/logger"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SnapshotFeed implements repository.ChangeFeed with Firestore query
// snapshot listeners. Firestore itself sends the initial snapshot with
// every document as added.
type SnapshotFeed struct {
	client *firestore.Client
	log    logger.Logger
}

func NewSnapshotFeed(client *firestore.Client, log logger.Logger) *SnapshotFeed {
	return &SnapshotFeed{client: client, log: log.WithComponent("firestore_feed")}
}

func (f *SnapshotFeed) Watch(ctx context.Context, uid string) (<-chan model.Snapshot, error) {
	query := f.client.Collection(docpath.UsersCollection).Doc(uid).
		Collection(docpath.CountersCollection).
		OrderBy("timestamp", firestore.Asc)
	it := query.Snapshots(ctx)

	path := docpath.CollectionPath(uid)
	out := make(chan model.Snapshot, 1)
	go func() {
		defer close(out)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					f.log.WithContext(ctx).Errorf("Snapshot listener for %s stopped: %v", path, err)
				}
				return
			}

			snap, err := toSnapshot(uid, path, qs)
			if err != nil {
				f.log.WithContext(ctx).Errorf("Failed to decode snapshot for %s: %v", path, err)
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func toSnapshot(uid, path string, qs *firestore.QuerySnapshot) (model.Snapshot, error) {
	changes := make([]model.Change, 0, len(qs.Changes))
	for _, dc := range qs.Changes {
		c, err := decode(uid, dc.Doc)
		if err != nil {
			return model.Snapshot{}, err
		}
		changes = append(changes, model.Change{Type: changeType(dc.Kind), Counter: *c})
	}
	return model.Snapshot{Path: path, Changes: changes, ReadTime: qs.ReadTime}, nil
}

func changeType(kind firestore.DocumentChangeKind) model.ChangeType {
	switch kind {
	case firestore.DocumentRemoved:
		return model.ChangeRemoved
	case firestore.DocumentModified:
		return model.ChangeModified
	default:
		return model.ChangeAdded
	}
}
