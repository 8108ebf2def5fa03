package ui

import (
	"context"

	"thing-counter/internal/counter/domain/model"
)

// Backend is the part of the server API the UI writes through
type Backend interface {
	CreateCounter(ctx context.Context, uid, name string) (*model.Counter, error)
	Increase(ctx context.Context, uid, id string, delta int64) (*model.Counter, error)
	RenameCounter(ctx context.Context, uid, id, name string) (*model.Counter, error)
	Listen(ctx context.Context, uid string) (Subscription, error)
}

// Subscription is an open live listener. Snapshots is closed when it ends.
type Subscription interface {
	Snapshots() <-chan model.Snapshot
	Err() error
	Close() error
}

// Auth signs the user in and out. SignIn returns the uid.
type Auth interface {
	SignIn(ctx context.Context, creds Credentials) (string, error)
	SignOut(ctx context.Context) error
}

// IncreaseRequested is emitted by a CounterModel for its +/- keys
type IncreaseRequested struct {
	ID    string
	Delta int64
}

// RenameRequested is emitted by a CounterModel when a non-blank name is submitted
type RenameRequested struct {
	ID   string
	Name string
}

type signedInMsg struct{ uid string }

type signedOutMsg struct{ err error }

type authErrMsg struct{ err error }

// listener messages carry the generation they belong to so that snapshots
// of a listener closed by sign-out are dropped.
type listenerStartedMsg struct {
	gen int
	sub Subscription
}

type snapshotMsg struct {
	gen      int
	snapshot model.Snapshot
}

type listenerEndedMsg struct {
	gen int
	err error
}

type writeDoneMsg struct {
	op  string
	err error
}
