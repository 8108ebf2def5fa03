// Command thingcounter is the Thing Counter client: one-shot commands for
// signing in and managing counters, plus an interactive terminal UI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thing-counter/internal/client"
	"thing-counter/internal/shared/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultServer = "http://localhost:3000"

var (
	// Global flags
	serverURL   string
	sessionPath string
	timeout     time.Duration
	verbose     bool

	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "thingcounter",
	Short: "Count things, live",
	Long: `thingcounter talks to a Thing Counter server.

Sign in with a Google ID token or an email and password, then create
counters and change them. Every change shows up in "watch" and "ui"
as soon as the server reports it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if log != nil {
			return nil
		}
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		base, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		log = logger.NewZapLoggerFrom(base)
		return nil
	},
}

func init() {
	server := os.Getenv("THING_COUNTER_SERVER")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", server, "server base URL (THING_COUNTER_SERVER)")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", "", "session file (default: user config dir)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func sessionStore() (*client.SessionStore, error) {
	if sessionPath != "" {
		return client.NewSessionStore(sessionPath), nil
	}
	path, err := client.DefaultSessionPath()
	if err != nil {
		return nil, err
	}
	return client.NewSessionStore(path), nil
}

// newClient builds an anonymous client for serverURL
func newClient() (*client.Client, error) {
	return client.New(serverURL, client.WithTimeout(timeout))
}

// signedInClient restores the saved session. The session's own server wins
// over the default so that commands keep talking to where the user signed in.
func signedInClient(cmd *cobra.Command) (*client.Client, *client.Session, error) {
	store, err := sessionStore()
	if err != nil {
		return nil, nil, err
	}
	session, err := store.Load()
	if errors.Is(err, client.ErrNoSession) {
		return nil, nil, errors.New(`not signed in, run "thingcounter login" first`)
	}
	if err != nil {
		return nil, nil, err
	}
	if !session.Valid(time.Now()) {
		return nil, nil, errors.New(`session expired, run "thingcounter login" again`)
	}

	server := serverURL
	if !cmd.Flags().Changed("server") && session.Server != "" {
		server = session.Server
	}
	c, err := client.New(server, client.WithTimeout(timeout), client.WithToken(session.Token))
	if err != nil {
		return nil, nil, err
	}
	return c, session, nil
}

func saveSession(c *client.Client, resp *client.AuthResponse) (*client.Session, error) {
	store, err := sessionStore()
	if err != nil {
		return nil, err
	}
	session := newSession(c, resp)
	if err := store.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

func newSession(c *client.Client, resp *client.AuthResponse) *client.Session {
	return &client.Session{
		Server:    c.BaseURL(),
		UID:       resp.User.ID,
		Email:     resp.User.Email,
		Provider:  resp.User.Provider,
		Token:     resp.AccessToken,
		ExpiresAt: resp.ExpiresAt,
	}
}
