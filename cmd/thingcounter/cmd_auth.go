package main

import (
	"errors"
	"fmt"
	"os"

	"thing-counter/internal/client"

	"github.com/spf13/cobra"
)

var (
	googleIDToken string
	email         string
	password      string
	displayName   string
)

// loginCmd signs in and stores the session
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with Google or with an email and password",
	Long: `Sign in and remember the session.

With --google-id-token the Firebase ID token of a Google sign-in is
exchanged for a session. Otherwise --email and --password are used.
The password may also come from THING_COUNTER_PASSWORD.`,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an email and password account and sign in",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVar(&googleIDToken, "google-id-token", "", "Firebase ID token from a Google sign-in")
	loginCmd.Flags().StringVar(&email, "email", "", "account email")
	loginCmd.Flags().StringVar(&password, "password", "", "account password")
	loginCmd.MarkFlagsMutuallyExclusive("google-id-token", "email")

	registerCmd.Flags().StringVar(&email, "email", "", "account email")
	registerCmd.Flags().StringVar(&password, "password", "", "account password")
	registerCmd.Flags().StringVar(&displayName, "name", "", "display name")
	_ = registerCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	var resp *client.AuthResponse
	switch {
	case googleIDToken != "":
		resp, err = c.SignInWithGoogle(cmd.Context(), googleIDToken)
	case email != "":
		resp, err = c.Login(cmd.Context(), email, passwordOrEnv())
	default:
		return errors.New("either --google-id-token or --email is required")
	}
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	return finishSignIn(cmd, c, resp)
}

func runRegister(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	resp, err := c.Register(cmd.Context(), email, passwordOrEnv(), displayName)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return finishSignIn(cmd, c, resp)
}

func finishSignIn(cmd *cobra.Command, c *client.Client, resp *client.AuthResponse) error {
	if resp.User == nil || resp.AccessToken == "" {
		return errors.New("server returned no session")
	}
	session, err := saveSession(c, resp)
	if err != nil {
		return err
	}
	log.WithFields(map[string]interface{}{"uid": session.UID, "provider": session.Provider}).Debug("Session saved")
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", describeUser(session))
	return nil
}

// runLogout always forgets the local session, even when the server is unreachable
func runLogout(cmd *cobra.Command, args []string) error {
	store, err := sessionStore()
	if err != nil {
		return err
	}
	if c, _, err := signedInClient(cmd); err == nil {
		if err := c.Logout(cmd.Context()); err != nil {
			log.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Server sign-out failed")
		}
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	c, session, err := signedInClient(cmd)
	if err != nil {
		return err
	}
	user, err := c.Me(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "uid:      %s\n", user.ID)
	if user.Email != "" {
		fmt.Fprintf(out, "email:    %s\n", user.Email)
	}
	if user.DisplayName != "" {
		fmt.Fprintf(out, "name:     %s\n", user.DisplayName)
	}
	fmt.Fprintf(out, "provider: %s\n", user.Provider)
	fmt.Fprintf(out, "server:   %s\n", c.BaseURL())
	fmt.Fprintf(out, "expires:  %s\n", session.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func passwordOrEnv() string {
	if password != "" {
		return password
	}
	return os.Getenv("THING_COUNTER_PASSWORD")
}

func describeUser(s *client.Session) string {
	if s.Email != "" {
		return fmt.Sprintf("%s (%s)", s.Email, s.UID)
	}
	return s.UID
}
