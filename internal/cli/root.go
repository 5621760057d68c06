package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// state is shared by the root command and its subcommands
type state struct {
	cfg    *Config
	client *Client
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	st := &state{cfg: DefaultConfig()}
	cfg := st.cfg

	rootCmd := &cobra.Command{
		Use:   "wordduel",
		Short: "CLI tool for the wordduel API",
		Long: `wordduel is a CLI tool for playing two-player word duels over the JSON API.

Create a session, share its key with your opponent, each pick a secret word,
then take turns guessing each other's word. Events can be streamed live over
SSE or WebSocket.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Output != "text" && cfg.Output != "json" {
				return fmt.Errorf("invalid output format %q: must be text or json", cfg.Output)
			}
			st.client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: WORDDUEL_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newCreateCmd(st))
	rootCmd.AddCommand(newJoinCmd(st))
	rootCmd.AddCommand(newSecretCmd(st))
	rootCmd.AddCommand(newGuessCmd(st))
	rootCmd.AddCommand(newStateCmd(st))
	rootCmd.AddCommand(newEventsCmd(st))
	rootCmd.AddCommand(newHealthCmd(st))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
