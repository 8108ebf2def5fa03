package usecase

import "sync"

// userLocks serializes writes per uid so counter.changed events leave in the
// order the writes were stored. Entries are dropped once nobody holds them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// lock blocks until uid is free and returns the matching unlock
func (l *userLocks) lock(uid string) func() {
	l.mu.Lock()
	entry, ok := l.locks[uid]
	if !ok {
		entry = &userLock{}
		l.locks[uid] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, uid)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
