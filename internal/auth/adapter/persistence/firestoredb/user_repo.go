package firestoredb

import (
	"context"
	"errors"
	"time"

	"thing-counter/internal/auth/domain/model"
	"thing-counter/internal/shared/docpath"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UserRepository implements repository.UserRepository on Cloud Firestore.
// Profiles live at users/{uid}, the parent of each user's counters.
type UserRepository struct {
	client *firestore.Client
}

func NewUserRepository(client *firestore.Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) users() *firestore.CollectionRef {
	return r.client.Collection(docpath.UsersCollection)
}

// Create checks email uniqueness and inserts inside one transaction
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return errors.New("user id cannot be empty")
	}
	ref := r.users().Doc(user.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if user.Email != "" {
			docs, err := tx.Documents(r.users().Where("email", "==", user.Email).Limit(1)).GetAll()
			if err != nil {
				return err
			}
			if len(docs) > 0 {
				return model.ErrEmailTaken
			}
		}
		return tx.Create(ref, user)
	})
	if status.Code(err) == codes.AlreadyExists {
		return model.ErrEmailTaken
	}
	return err
}

// Upsert keeps createdAt of an existing profile
func (r *UserRepository) Upsert(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return errors.New("user id cannot be empty")
	}
	ref := r.users().Doc(user.ID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var existing model.User
			if err := snap.DataTo(&existing); err != nil {
				return err
			}
			user.CreatedAt = existing.CreatedAt
			user.PasswordHash = existing.PasswordHash
		case status.Code(err) == codes.NotFound:
			if user.CreatedAt.IsZero() {
				user.CreatedAt = time.Now().UTC()
			}
		default:
			return err
		}
		return tx.Set(ref, user)
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, model.ErrUserNotFound
	}
	snap, err := r.users().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return decodeUser(snap)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, model.ErrUserNotFound
	}
	iter := r.users().Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeUser(snap)
}

func decodeUser(snap *firestore.DocumentSnapshot) (*model.User, error) {
	var user model.User
	if err := snap.DataTo(&user); err != nil {
		return nil, err
	}
	user.ID = snap.Ref.ID
	return &user, nil
}
