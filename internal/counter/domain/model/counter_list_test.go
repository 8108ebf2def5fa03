package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func ids(items []Counter) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

func TestCounterList_AppliesChangesInOrder(t *testing.T) {
	l := NewCounterList()
	l.Apply(
		Change{Type: ChangeAdded, Counter: Counter{ID: "a", Name: "A"}},
		Change{Type: ChangeAdded, Counter: Counter{ID: "b", Name: "B"}},
		Change{Type: ChangeAdded, Counter: Counter{ID: "c", Name: "C"}},
	)
	l.Apply(
		Change{Type: ChangeModified, Counter: Counter{ID: "b", Name: "B", Value: 4}},
		Change{Type: ChangeRemoved, Counter: Counter{ID: "a"}},
	)

	want := []Counter{
		{ID: "b", Name: "B", Value: 4},
		{ID: "c", Name: "C"},
	}
	if diff := cmp.Diff(want, l.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestCounterList_OrderMatters(t *testing.T) {
	l := NewCounterList()
	l.Apply(
		Change{Type: ChangeAdded, Counter: Counter{ID: "x", Value: 1}},
		Change{Type: ChangeRemoved, Counter: Counter{ID: "x"}},
		Change{Type: ChangeAdded, Counter: Counter{ID: "x", Value: 2}},
	)
	got, ok := l.Get("x")
	assert.True(t, ok)
	assert.EqualValues(t, 2, got.Value)
	assert.Equal(t, 1, l.Len())
}

func TestCounterList_DuplicateAddReplaces(t *testing.T) {
	l := NewCounterList()
	l.Apply(Change{Type: ChangeAdded, Counter: Counter{ID: "a", Value: 1}})
	l.Apply(Change{Type: ChangeAdded, Counter: Counter{ID: "a", Value: 5}})
	assert.Equal(t, []string{"a"}, ids(l.Items()))
	got, _ := l.Get("a")
	assert.EqualValues(t, 5, got.Value)
}

func TestCounterList_UnknownModifyAppendsAndUnknownRemoveIgnored(t *testing.T) {
	l := NewCounterList()
	l.Apply(
		Change{Type: ChangeRemoved, Counter: Counter{ID: "ghost"}},
		Change{Type: ChangeModified, Counter: Counter{ID: "late", Value: 3}},
	)
	assert.Equal(t, []string{"late"}, ids(l.Items()))
}

func TestCounterList_ItemsIsACopy(t *testing.T) {
	l := NewCounterList()
	l.Apply(Change{Type: ChangeAdded, Counter: Counter{ID: "a", Name: "A"}})
	items := l.Items()
	items[0].Name = "mutated"
	got, _ := l.Get("a")
	assert.Equal(t, "A", got.Name)
}

func TestInitialSnapshot(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := InitialSnapshot("users/u/counters", []*Counter{{ID: "a"}, {ID: "b"}}, now)
	l := NewCounterList()
	l.ApplySnapshot(s)
	assert.Equal(t, []string{"a", "b"}, ids(l.Items()))
	for _, ch := range s.Changes {
		assert.Equal(t, ChangeAdded, ch.Type)
	}
	assert.Equal(t, now, s.ReadTime)

	l.Reset()
	assert.Zero(t, l.Len())
}
