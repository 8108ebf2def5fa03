package main

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	authmodel "thing-counter/internal/auth/domain/model"
	"thing-counter/internal/client"
	"thing-counter/internal/counter/domain/model"
	"thing-counter/internal/platform/firebase"
	apperrors "thing-counter/internal/shared/errors"
	"thing-counter/internal/shared/eventbus"
	"thing-counter/internal/ui"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempSession(t *testing.T) *client.SessionStore {
	t.Helper()
	log = eventbus.NoopLogger()
	sessionPath = filepath.Join(t.TempDir(), "session.yaml")
	serverURL = "http://127.0.0.1:1"
	timeout = time.Second
	t.Cleanup(func() { sessionPath = "" })
	return client.NewSessionStore(sessionPath)
}

func TestMatchCounter(t *testing.T) {
	counters := []model.Counter{
		{ID: "a1", Name: "Push-ups"},
		{ID: "b2", Name: "Squats"},
		{ID: "c3", Name: "Squats"},
	}

	id, err := matchCounter(counters, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", id)

	id, err = matchCounter(counters, "Push-ups")
	require.NoError(t, err)
	assert.Equal(t, "a1", id)

	_, err = matchCounter(counters, "Squats")
	assert.ErrorContains(t, err, "2 counters")

	_, err = matchCounter(counters, "Lunges")
	assert.ErrorContains(t, err, "no counter")
}

func TestPrintCounters(t *testing.T) {
	var out bytes.Buffer
	printCounters(&out, nil)
	assert.Contains(t, out.String(), "No counters yet.")

	out.Reset()
	printCounters(&out, []model.Counter{{ID: "a1", Name: "Push-ups", Value: 12}})
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "Push-ups")
	assert.Contains(t, out.String(), "12")
}

func TestPrintChanges(t *testing.T) {
	var out bytes.Buffer
	printChanges(&out, model.Snapshot{Changes: []model.Change{
		{Type: model.ChangeAdded, Counter: model.Counter{ID: "a1", Name: "Push-ups"}},
		{Type: model.ChangeRemoved, Counter: model.Counter{ID: "b2", Name: "Squats", Value: 3}},
	}})
	assert.Contains(t, out.String(), string(model.ChangeAdded))
	assert.Contains(t, out.String(), string(model.ChangeRemoved))
	assert.Contains(t, out.String(), "Squats")
}

func TestCommandsRequireSession(t *testing.T) {
	useTempSession(t)

	err := runList(&cobra.Command{}, nil)
	assert.ErrorContains(t, err, "not signed in")
}

func TestCommandsRejectExpiredSession(t *testing.T) {
	store := useTempSession(t)
	require.NoError(t, store.Save(&client.Session{UID: "u1", Token: "t", ExpiresAt: time.Now().Add(-time.Hour)}))

	_, _, err := signedInClient(&cobra.Command{})
	assert.ErrorContains(t, err, "session expired")
}

func TestSignedInClientUsesSessionServer(t *testing.T) {
	store := useTempSession(t)
	require.NoError(t, store.Save(&client.Session{
		Server:    "http://counters.example.com",
		UID:       "u1",
		Token:     "tok",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	c, session, err := signedInClient(&cobra.Command{})
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UID)
	assert.Equal(t, "http://counters.example.com", c.BaseURL())
	assert.Equal(t, "tok", c.Token())
}

func TestCreateRejectsBlankName(t *testing.T) {
	useTempSession(t)
	err := runCreate(&cobra.Command{}, []string{"   "})
	assert.ErrorContains(t, err, "needs a name")
}

// startAuthServer serves the sign-in and config routes the CLI calls
func startAuthServer(t *testing.T) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	api := app.Group("/api/v1")
	session := func(c *fiber.Ctx, user *authmodel.User) error {
		return c.JSON(client.AuthResponse{User: user, AccessToken: "tok-" + user.Provider, ExpiresAt: time.Now().Add(time.Hour)})
	}
	api.Post("/auth/login", func(c *fiber.Ctx) error {
		var req map[string]string
		if err := c.BodyParser(&req); err != nil || req["password"] != "Password1" {
			return c.Status(fiber.StatusUnauthorized).JSON(apperrors.Response{Error: "AUTHENTICATION_ERROR", Message: "invalid email or password"})
		}
		return session(c, &authmodel.User{ID: "u1", Email: req["email"], Provider: authmodel.ProviderPassword})
	})
	api.Post("/auth/google", func(c *fiber.Ctx) error {
		var req map[string]string
		if err := c.BodyParser(&req); err != nil || req["idToken"] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(apperrors.Response{Error: "AUTHENTICATION_ERROR", Message: "invalid id token"})
		}
		return session(c, &authmodel.User{ID: "g1", Provider: authmodel.ProviderGoogle})
	})
	api.Post("/auth/logout", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	firebase.NewWebConfigHandler(firebase.WebConfig{
		APIKey:     "web-key",
		AuthDomain: "counters.firebaseapp.com",
		ProjectID:  "counters",
	}).RegisterRoutes(api)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func TestSessionAuth(t *testing.T) {
	store := useTempSession(t)
	serverURL = startAuthServer(t)
	c, err := newClient()
	require.NoError(t, err)
	auth := &sessionAuth{store: store, client: c}
	ctx := context.Background()

	_, err = auth.SignIn(ctx, ui.Credentials{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorContains(t, err, "invalid email or password")
	_, err = store.Load()
	assert.ErrorIs(t, err, client.ErrNoSession)

	uid, err := auth.SignIn(ctx, ui.Credentials{Email: "ada@example.com", Password: "Password1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
	assert.NotEmpty(t, c.Token())

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "u1", saved.UID)
	assert.Equal(t, "ada@example.com", saved.Email)
	assert.Equal(t, serverURL, saved.Server)

	require.NoError(t, auth.SignOut(ctx))
	assert.Empty(t, c.Token())
	_, err = store.Load()
	assert.ErrorIs(t, err, client.ErrNoSession)

	// signing in again after a logout needs no session file
	uid, err = auth.SignIn(ctx, ui.Credentials{GoogleIDToken: "id-token"})
	require.NoError(t, err)
	assert.Equal(t, "g1", uid)
	saved, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, authmodel.ProviderGoogle, saved.Provider)
}

func TestSessionAuth_SignOutForgetsSessionWhenServerDown(t *testing.T) {
	store := useTempSession(t)
	c, err := newClient()
	require.NoError(t, err)
	c.SetToken("tok")
	require.NoError(t, store.Save(&client.Session{UID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}))
	auth := &sessionAuth{store: store, client: c}

	assert.Error(t, auth.SignOut(context.Background()))
	assert.Empty(t, c.Token())
	_, err = store.Load()
	assert.ErrorIs(t, err, client.ErrNoSession)
}

func TestConfigCommand(t *testing.T) {
	useTempSession(t)
	serverURL = startAuthServer(t)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	require.NoError(t, runConfig(cmd, nil))

	assert.Contains(t, out.String(), "counters.firebaseapp.com")
	assert.Contains(t, out.String(), "web-key")
	assert.NotContains(t, out.String(), "storageBucket")
}
