package model

import (
	"errors"
	"strings"
	"time"

	"thing-counter/internal/shared/docpath"
)

var (
	ErrCounterNotFound = errors.New("counter not found")
	ErrEmptyName       = errors.New("counter name cannot be empty")
	ErrInvalidDelta    = errors.New("delta must be non-zero")
)

// Counter is a named integer owned by a user, stored at
// users/{uid}/counters/{id}.
type Counter struct {
	ID        string    `json:"id" bson:"_id" firestore:"-"`
	UserID    string    `json:"uid" bson:"uid" firestore:"-"`
	Name      string    `json:"name" bson:"name" firestore:"name"`
	Value     int64     `json:"value" bson:"value" firestore:"value"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp" firestore:"timestamp"`
}

// Path returns the document path of the counter
func (c *Counter) Path() string {
	return docpath.DocumentPath(c.UserID, c.ID)
}

// NormalizeName trims name and rejects blank input
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyName
	}
	return trimmed, nil
}
