package mongodb

import (
	"context"
	"errors"
	"fmt"

	"thing-counter/internal/auth/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersCollection stores profiles keyed by uid
const UsersCollection = "users"

// UserRepository implements repository.UserRepository using MongoDB
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository creates the repository and its unique email index.
// The index is partial so that identities without an email never collide.
func NewUserRepository(ctx context.Context, db *mongo.Database) (*UserRepository, error) {
	repo := &UserRepository{users: db.Collection(UsersCollection)}

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"email": bson.M{"$gt": ""}}),
	}
	if _, err := repo.users.Indexes().CreateOne(ctx, emailIndex); err != nil {
		return nil, fmt.Errorf("failed to create users email index: %w", err)
	}
	return repo, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if user.ID == "" {
		return errors.New("user id cannot be empty")
	}
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrEmailTaken
		}
		return err
	}
	return nil
}

// Upsert writes the mutable profile fields and keeps created_at from the
// first insert. The stored document is decoded back into user.
func (r *UserRepository) Upsert(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return errors.New("user id cannot be empty")
	}

	update := bson.M{
		"$set": bson.M{
			"email":           user.Email,
			"display_name":    user.DisplayName,
			"photo_url":       user.PhotoURL,
			"provider":        user.Provider,
			"last_sign_in_at": user.LastSignInAt,
		},
		"$setOnInsert": bson.M{
			"created_at": user.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": user.ID}, update, opts).Decode(user)
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrEmailTaken
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, model.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
