package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/wordduel/internal/api/request"
	"github.com/mcoot/wordduel/internal/api/response"
)

func sessionPath(key string, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(key) + suffix
}

func newCreateCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.CreateSessionResponse

			if err := st.client.Post("/api/v1/sessions", nil, &result); err != nil {
				return err
			}

			NewOutput(st.cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newJoinCmd(st *state) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join <key> <client-id>",
		Short: "Join a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.JoinRequest{ClientID: args[1], DisplayName: name}

			var result response.JoinResponse

			if err := st.client.Post(sessionPath(args[0], "/join"), req, &result); err != nil {
				return err
			}

			NewOutput(st.cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (default: Player1 or Player2)")

	return cmd
}

func newSecretCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "secret <key> <client-id> <word>",
		Short: "Set your secret word",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.SecretRequest{ClientID: args[1], Secret: args[2]}

			var result response.SuccessResponse

			if err := st.client.Post(sessionPath(args[0], "/secret"), req, &result); err != nil {
				return err
			}

			NewOutput(st.cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newGuessCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "guess <key> <client-id> <word>",
		Short: "Guess your opponent's word",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.GuessRequest{ClientID: args[1], Guess: args[2]}

			var result response.GuessResult

			if err := st.client.Post(sessionPath(args[0], "/guess"), req, &result); err != nil {
				return err
			}

			NewOutput(st.cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newStateCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "state <key>",
		Short: "Show the current session state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.SessionState

			if err := st.client.Get(sessionPath(args[0], ""), &result); err != nil {
				return fmt.Errorf("get session %s: %w", args[0], err)
			}

			NewOutput(st.cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
