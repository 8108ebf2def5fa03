package main

import (
	"fmt"
	"io"

	"thing-counter/internal/platform/firebase"

	"github.com/spf13/cobra"
)

// configCmd shows the Firebase web config the server hands to clients. A
// Google sign-in flow needs it to obtain the ID token "login" exchanges.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the server's Firebase web config",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	cfg, err := c.WebConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}
	printWebConfig(cmd.OutOrStdout(), cfg)
	return nil
}

func printWebConfig(out io.Writer, cfg *firebase.WebConfig) {
	fmt.Fprintf(out, "server:            %s\n", serverURL)
	fmt.Fprintf(out, "projectId:         %s\n", cfg.ProjectID)
	fmt.Fprintf(out, "authDomain:        %s\n", cfg.AuthDomain)
	fmt.Fprintf(out, "apiKey:            %s\n", cfg.APIKey)
	if cfg.AppID != "" {
		fmt.Fprintf(out, "appId:             %s\n", cfg.AppID)
	}
	if cfg.StorageBucket != "" {
		fmt.Fprintf(out, "storageBucket:     %s\n", cfg.StorageBucket)
	}
	if cfg.MessagingSenderID != "" {
		fmt.Fprintf(out, "messagingSenderId: %s\n", cfg.MessagingSenderID)
	}
}
