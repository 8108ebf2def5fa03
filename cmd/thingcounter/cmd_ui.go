package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"thing-counter/internal/client"
	"thing-counter/internal/shared/logger"
	"thing-counter/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive counter screen",
	Long: `Open the interactive counter screen.

The screen starts signed in when a saved session exists; otherwise "l"
asks for an email and password or a Google ID token. It shows every
counter live and lets you create, change and rename them. Logs go to ui.log
next to the session file.`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

// listenerBackend lets client.Client serve as the UI backend
type listenerBackend struct {
	*client.Client
}

func (b listenerBackend) Listen(ctx context.Context, uid string) (ui.Subscription, error) {
	return b.Client.Listen(ctx, uid)
}

// sessionAuth signs the UI in against the server and keeps the session
// file in step, so "login" and the UI share one session
type sessionAuth struct {
	store  *client.SessionStore
	client *client.Client
}

func (a *sessionAuth) SignIn(ctx context.Context, creds ui.Credentials) (string, error) {
	var (
		resp *client.AuthResponse
		err  error
	)
	if creds.GoogleIDToken != "" {
		resp, err = a.client.SignInWithGoogle(ctx, creds.GoogleIDToken)
	} else {
		resp, err = a.client.Login(ctx, creds.Email, creds.Password)
	}
	if err != nil {
		return "", err
	}
	if resp.User == nil || resp.AccessToken == "" {
		return "", errors.New("server returned no session")
	}
	if err := a.store.Save(newSession(a.client, resp)); err != nil {
		return "", err
	}
	return resp.User.ID, nil
}

func (a *sessionAuth) SignOut(ctx context.Context) error {
	err := a.client.Logout(ctx)
	if clearErr := a.store.Clear(); clearErr != nil {
		return clearErr
	}
	return err
}

func runUI(cmd *cobra.Command, args []string) error {
	store, err := sessionStore()
	if err != nil {
		return err
	}
	uiLog, closeLog, err := fileLogger(filepath.Join(filepath.Dir(store.Path()), "ui.log"))
	if err != nil {
		return err
	}
	defer closeLog()

	c, err := newClient()
	if err != nil {
		return err
	}
	auth := &sessionAuth{store: store, client: c}

	var uid string
	if session, err := store.Load(); err == nil && session.Valid(time.Now()) {
		if !cmd.Flags().Changed("server") && session.Server != "" {
			if c, err = client.New(session.Server, client.WithTimeout(timeout)); err != nil {
				return err
			}
			auth.client = c
		}
		c.SetToken(session.Token)
		uid = session.UID
	}

	app := ui.NewAppModel(cmd.Context(), listenerBackend{c}, auth, uid, uiLog)
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

// fileLogger keeps log output off the terminal the UI draws on
func fileLogger(path string) (logger.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	base, err := config.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("open ui log: %w", err)
	}
	return logger.NewZapLoggerFrom(base), func() { _ = base.Sync() }, nil
}
