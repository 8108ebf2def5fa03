package model

// CounterList mirrors a user's counters subcollection on the client. It is
// mutated only through Apply.
type CounterList struct {
	items []Counter
}

// NewCounterList returns an empty list
func NewCounterList() *CounterList {
	return &CounterList{}
}

// Apply folds changes into the list in the order given.
func (l *CounterList) Apply(changes ...Change) {
	for _, ch := range changes {
		idx := l.indexOf(ch.Counter.ID)
		switch ch.Type {
		case ChangeAdded, ChangeModified:
			if idx >= 0 {
				l.items[idx] = ch.Counter
			} else {
				l.items = append(l.items, ch.Counter)
			}
		case ChangeRemoved:
			if idx >= 0 {
				l.items = append(l.items[:idx], l.items[idx+1:]...)
			}
		}
	}
}

// ApplySnapshot applies every change of s
func (l *CounterList) ApplySnapshot(s Snapshot) {
	l.Apply(s.Changes...)
}

// Items returns a copy of the current entries
func (l *CounterList) Items() []Counter {
	out := make([]Counter, len(l.items))
	copy(out, l.items)
	return out
}

// Get returns the counter with the given id
func (l *CounterList) Get(id string) (Counter, bool) {
	if idx := l.indexOf(id); idx >= 0 {
		return l.items[idx], true
	}
	return Counter{}, false
}

func (l *CounterList) Len() int {
	return len(l.items)
}

// Reset drops all entries, used on sign-out
func (l *CounterList) Reset() {
	l.items = nil
}

func (l *CounterList) indexOf(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}
