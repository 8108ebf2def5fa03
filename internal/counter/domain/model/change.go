package model

import "time"

// ChangeType is the kind of a live listener diff
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change is a single document diff delivered by a watch
type Change struct {
	Type    ChangeType `json:"type"`
	Counter Counter    `json:"counter"`
}

// Snapshot is one batch of diffs. The first snapshot of a watch carries the
// current contents of the collection as added changes.
type Snapshot struct {
	Path     string    `json:"path"`
	Changes  []Change  `json:"changes"`
	ReadTime time.Time `json:"readTime"`
}

// ChangeEvent is the payload published on the event bus after a write
type ChangeEvent struct {
	UserID string `json:"uid"`
	Change Change `json:"change"`
}

// InitialSnapshot builds the first snapshot of a watch from a listing.
func InitialSnapshot(path string, counters []*Counter, readTime time.Time) Snapshot {
	changes := make([]Change, 0, len(counters))
	for _, c := range counters {
		changes = append(changes, Change{Type: ChangeAdded, Counter: *c})
	}
	return Snapshot{Path: path, Changes: changes, ReadTime: readTime}
}
