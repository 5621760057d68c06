package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/wordduel/internal/api/response"
)

func newHealthCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Health

			if err := st.client.Get("/api/v1/health", &result); err != nil {
				return err
			}

			NewOutput(st.cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
