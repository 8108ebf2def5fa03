package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"thing-counter/internal/client"
	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/shared/eventbus"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	ch     chan model.Snapshot
	err    error
	closed bool
}

func newFakeSub() *fakeSub { return &fakeSub{ch: make(chan model.Snapshot, 8)} }

func (s *fakeSub) Snapshots() <-chan model.Snapshot { return s.ch }
func (s *fakeSub) Err() error                       { return s.err }
func (s *fakeSub) Close() error {
	s.closed = true
	return nil
}

type fakeBackend struct {
	mu       sync.Mutex
	counters map[string]*model.Counter
	creates  []string
	renames  []RenameRequested
	writeErr error
	listens  []string
	sub      *fakeSub
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{counters: map[string]*model.Counter{}, sub: newFakeSub()}
}

func (b *fakeBackend) CreateCounter(ctx context.Context, uid, name string) (*model.Counter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return nil, b.writeErr
	}
	b.creates = append(b.creates, name)
	c := &model.Counter{ID: name, UserID: uid, Name: name}
	b.counters[c.ID] = c
	return c, nil
}

func (b *fakeBackend) Increase(ctx context.Context, uid, id string, delta int64) (*model.Counter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return nil, b.writeErr
	}
	c, ok := b.counters[id]
	if !ok {
		return nil, model.ErrCounterNotFound
	}
	c.Value += delta
	return c, nil
}

func (b *fakeBackend) RenameCounter(ctx context.Context, uid, id, name string) (*model.Counter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.renames = append(b.renames, RenameRequested{ID: id, Name: name})
	return b.counters[id], nil
}

func (b *fakeBackend) Listen(ctx context.Context, uid string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listens = append(b.listens, uid)
	return b.sub, nil
}

type fakeAuth struct {
	uid      string
	err      error
	signIns  []Credentials
	signOuts int
}

func (a *fakeAuth) SignIn(ctx context.Context, creds Credentials) (string, error) {
	a.signIns = append(a.signIns, creds)
	return a.uid, a.err
}

func (a *fakeAuth) SignOut(ctx context.Context) error {
	a.signOuts++
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+g":
		return tea.KeyMsg{Type: tea.KeyCtrlG}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	app, ok := updated.(AppModel)
	require.True(t, ok)
	return app, cmd
}

// run executes cmd and feeds its message back, following up to depth commands
func run(t *testing.T, m AppModel, cmd tea.Cmd, depth int) AppModel {
	t.Helper()
	for i := 0; i < depth && cmd != nil; i++ {
		msg := cmd()
		if _, ok := msg.(tea.BatchMsg); ok {
			t.Fatal("unexpected batch")
		}
		m, cmd = send(t, m, msg)
	}
	return m
}

func snapshot(changes ...model.Change) model.Snapshot {
	return model.Snapshot{Path: "users/u1/counters", Changes: changes, ReadTime: time.Now()}
}

func added(id, name string, value int64) model.Change {
	return model.Change{Type: model.ChangeAdded, Counter: model.Counter{ID: id, UserID: "u1", Name: name, Value: value}}
}

func modified(id, name string, value int64) model.Change {
	return model.Change{Type: model.ChangeModified, Counter: model.Counter{ID: id, UserID: "u1", Name: name, Value: value}}
}

// login opens the login form, fills it in and submits it
func login(t *testing.T, m AppModel, email, password string) (AppModel, tea.Cmd) {
	t.Helper()
	m, _ = send(t, m, key("l"))
	require.Contains(t, m.View(), "Password")
	m, _ = send(t, m, key(email))
	m, _ = send(t, m, key("tab"))
	m, _ = send(t, m, key(password))
	return send(t, m, key("enter"))
}

// signedIn returns an app listening for u1 with the given counters delivered
func signedIn(t *testing.T, backend *fakeBackend, changes ...model.Change) AppModel {
	t.Helper()
	m := NewAppModel(context.Background(), backend, &fakeAuth{uid: "u1"}, "u1", eventbus.NoopLogger())
	started := m.Init()()
	m, wait := send(t, m, started)
	require.NotNil(t, wait)
	if len(changes) > 0 {
		backend.sub.ch <- snapshot(changes...)
		m, _ = send(t, m, wait())
	}
	return m
}

func TestAppModel_SignedOutView(t *testing.T) {
	m := NewAppModel(context.Background(), newFakeBackend(), &fakeAuth{uid: "u1"}, "", eventbus.NoopLogger())
	assert.False(t, m.Authenticated())
	assert.Nil(t, m.Init())

	view := m.View()
	assert.Contains(t, view, "Thing Counter")
	assert.Contains(t, view, "[l] login")
	assert.NotContains(t, view, "New counter")
}

func TestAppModel_SignInStartsListener(t *testing.T) {
	backend := newFakeBackend()
	auth := &fakeAuth{uid: "u1"}
	m := NewAppModel(context.Background(), backend, auth, "", eventbus.NoopLogger())

	m, cmd := login(t, m, " alice@example.com ", "hunter22")
	require.NotNil(t, cmd)
	m = run(t, m, cmd, 2)

	assert.True(t, m.Authenticated())
	assert.Equal(t, []Credentials{{Email: "alice@example.com", Password: "hunter22"}}, auth.signIns)
	assert.Equal(t, []string{"u1"}, backend.listens)
	assert.Contains(t, m.View(), "[o] logout")
	assert.NotContains(t, m.View(), "Password")
}

func TestAppModel_SignInWithGoogleToken(t *testing.T) {
	auth := &fakeAuth{uid: "u1"}
	m := NewAppModel(context.Background(), newFakeBackend(), auth, "", eventbus.NoopLogger())

	m, _ = send(t, m, key("l"))
	m, _ = send(t, m, key("ctrl+g"))
	assert.Contains(t, m.View(), "Google ID token")
	m, _ = send(t, m, key("eyJ.token"))
	m, cmd := send(t, m, key("enter"))
	require.NotNil(t, cmd)
	m = run(t, m, cmd, 1)

	assert.True(t, m.Authenticated())
	assert.Equal(t, []Credentials{{GoogleIDToken: "eyJ.token"}}, auth.signIns)
}

func TestAppModel_BlankCredentialsDoNotSignIn(t *testing.T) {
	auth := &fakeAuth{uid: "u1"}
	m := NewAppModel(context.Background(), newFakeBackend(), auth, "", eventbus.NoopLogger())

	m, cmd := login(t, m, "alice@example.com", "")

	assert.Nil(t, cmd)
	assert.Empty(t, auth.signIns)
	assert.False(t, m.Authenticated())
	assert.Equal(t, errIncompleteCredentials.Error(), m.Status())

	m, _ = send(t, m, key("esc"))
	assert.Contains(t, m.View(), "Sign in to see your counters.")
}

func TestAppModel_SignInFailureShowsStatus(t *testing.T) {
	m := NewAppModel(context.Background(), newFakeBackend(), &fakeAuth{err: errors.New("invalid credentials")}, "", eventbus.NoopLogger())

	m, cmd := login(t, m, "alice@example.com", "wrong")
	m = run(t, m, cmd, 1)

	assert.False(t, m.Authenticated())
	assert.Contains(t, m.Status(), "invalid credentials")
}

func TestAppModel_LogoutThenLoginAgain(t *testing.T) {
	backend := newFakeBackend()
	auth := &fakeAuth{uid: "u1"}
	m := NewAppModel(context.Background(), backend, auth, "u1", eventbus.NoopLogger())
	m, _ = send(t, m, m.Init()())

	m, cmd := send(t, m, key("o"))
	m = run(t, m, cmd, 1)
	require.False(t, m.Authenticated())
	require.Equal(t, 1, auth.signOuts)

	backend.sub = newFakeSub()
	m, cmd = login(t, m, "alice@example.com", "hunter22")
	require.NotNil(t, cmd)
	m = run(t, m, cmd, 2)

	assert.True(t, m.Authenticated())
	assert.Len(t, auth.signIns, 1)
	assert.Equal(t, []string{"u1", "u1"}, backend.listens)

	backend.sub.ch <- snapshot(added("a", "Alpha", 0))
	m = run(t, m, waitForSnapshot(m.gen, backend.sub), 1)
	require.Len(t, m.Counters(), 1)
}

func TestAppModel_SnapshotsAppliedInOrder(t *testing.T) {
	backend := newFakeBackend()
	m := signedIn(t, backend)

	backend.sub.ch <- snapshot(added("a", "Alpha", 0), added("b", "Beta", 0))
	backend.sub.ch <- snapshot(modified("a", "Alpha", 3))
	backend.sub.ch <- snapshot(model.Change{Type: model.ChangeRemoved, Counter: model.Counter{ID: "b"}})

	var cmd tea.Cmd = waitForSnapshot(m.gen, backend.sub)
	m = run(t, m, cmd, 3)

	items := m.Counters()
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha", items[0].Name)
	assert.EqualValues(t, 3, items[0].Value)
	assert.NotContains(t, m.View(), "Beta")
}

func TestAppModel_BlankCreateDoesNotWrite(t *testing.T) {
	backend := newFakeBackend()
	m := signedIn(t, backend)

	m, _ = send(t, m, key("tab"))
	m.form.SetValue("   ")
	m, cmd := send(t, m, key("enter"))

	assert.Nil(t, cmd)
	assert.Empty(t, backend.creates)
	assert.NotEmpty(t, m.Status())
}

func TestAppModel_CreateWritesTrimmedName(t *testing.T) {
	backend := newFakeBackend()
	m := signedIn(t, backend)

	m, _ = send(t, m, key("tab"))
	m.form.SetValue("  Push-ups ")
	m, cmd := send(t, m, key("enter"))
	require.NotNil(t, cmd)
	m = run(t, m, cmd, 1)

	assert.Equal(t, []string{"Push-ups"}, backend.creates)
	assert.Empty(t, m.form.Value())
	// nothing is shown until the listener reports it
	assert.Empty(t, m.Counters())
}

func TestAppModel_PlusWritesValuePlusOne(t *testing.T) {
	backend := newFakeBackend()
	backend.counters["a"] = &model.Counter{ID: "a", UserID: "u1", Name: "Alpha", Value: 4}
	m := signedIn(t, backend, added("a", "Alpha", 4))

	m, cmd := send(t, m, key("+"))
	require.NotNil(t, cmd)
	m = run(t, m, cmd, 2)

	assert.EqualValues(t, 5, backend.counters["a"].Value)
	assert.Empty(t, m.Status())

	_, cmd = send(t, m, key("-"))
	run(t, m, cmd, 2)
	assert.EqualValues(t, 4, backend.counters["a"].Value)
}

func TestAppModel_WriteErrorShownInStatus(t *testing.T) {
	backend := newFakeBackend()
	backend.counters["a"] = &model.Counter{ID: "a", UserID: "u1", Name: "Alpha"}
	backend.writeErr = errors.New("permission denied")
	m := signedIn(t, backend, added("a", "Alpha", 0))

	m, cmd := send(t, m, key("+"))
	m = run(t, m, cmd, 2)

	assert.Contains(t, m.Status(), "permission denied")
	assert.True(t, strings.Contains(m.View(), "increase failed"))
}

func TestAppModel_WhitespaceRenameKeepsName(t *testing.T) {
	backend := newFakeBackend()
	m := signedIn(t, backend, added("a", "Alpha", 0))

	m, _ = send(t, m, key("r"))
	require.True(t, m.counters[0].Editing())
	m.counters[0].input.SetValue("   ")
	m, cmd := send(t, m, key("enter"))

	assert.Nil(t, cmd)
	assert.Empty(t, backend.renames)
	assert.False(t, m.counters[0].Editing())
	assert.Contains(t, m.View(), "Alpha")
}

func TestAppModel_RenameWritesTrimmedName(t *testing.T) {
	backend := newFakeBackend()
	backend.counters["a"] = &model.Counter{ID: "a", UserID: "u1", Name: "Alpha"}
	m := signedIn(t, backend, added("a", "Alpha", 0))

	m, _ = send(t, m, key("r"))
	m.counters[0].input.SetValue(" Squats ")
	m, cmd := send(t, m, key("enter"))
	require.NotNil(t, cmd)
	run(t, m, cmd, 2)

	assert.Equal(t, []RenameRequested{{ID: "a", Name: "Squats"}}, backend.renames)
}

func TestAppModel_SignOutResetsAndDropsLateSnapshots(t *testing.T) {
	backend := newFakeBackend()
	auth := &fakeAuth{uid: "u1"}
	m := NewAppModel(context.Background(), backend, auth, "u1", eventbus.NoopLogger())
	m, wait := send(t, m, m.Init()())
	backend.sub.ch <- snapshot(added("a", "Alpha", 0))
	m, _ = send(t, m, wait())
	require.Len(t, m.Counters(), 1)
	staleGen := m.gen

	m, cmd := send(t, m, key("o"))
	m = run(t, m, cmd, 1)

	assert.False(t, m.Authenticated())
	assert.Empty(t, m.Counters())
	assert.True(t, backend.sub.closed)
	assert.Equal(t, 1, auth.signOuts)

	m, _ = send(t, m, snapshotMsg{gen: staleGen, snapshot: snapshot(added("b", "Beta", 0))})
	assert.Empty(t, m.Counters())
}

func TestAppModel_ListenerEndReported(t *testing.T) {
	backend := newFakeBackend()
	m := signedIn(t, backend)

	backend.sub.err = errors.New("subscription ended")
	close(backend.sub.ch)
	m = run(t, m, waitForSnapshot(m.gen, backend.sub), 1)

	assert.Contains(t, m.Status(), "subscription ended")
}

func TestAppModel_ServerEndedListenerResubscribes(t *testing.T) {
	resubscribeDelay = time.Millisecond
	t.Cleanup(func() { resubscribeDelay = time.Second })
	backend := newFakeBackend()
	m := signedIn(t, backend, added("a", "Alpha", 0), added("b", "Beta", 0))
	first := backend.sub
	staleGen := m.gen

	first.err = client.ErrListenerEnded
	close(first.ch)
	ended := waitForSnapshot(m.gen, first)()

	backend.sub = newFakeSub()
	m, cmd := send(t, m, ended)
	require.NotNil(t, cmd)
	m = run(t, m, cmd, 1)
	assert.Equal(t, []string{"u1", "u1"}, backend.listens)
	assert.NotEqual(t, staleGen, m.gen)
	// the old rows stay visible until the new listing arrives
	assert.Len(t, m.Counters(), 2)

	// b was deleted while no listener was open
	backend.sub.ch <- snapshot(added("a", "Alpha", 7))
	m = run(t, m, waitForSnapshot(m.gen, backend.sub), 1)

	items := m.Counters()
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
	assert.EqualValues(t, 7, items[0].Value)
	assert.NotContains(t, m.Status(), "stopped")
}

func TestAppModel_QuitKeys(t *testing.T) {
	m := signedIn(t, newFakeBackend())
	_, cmd := send(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
