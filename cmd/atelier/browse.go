package main

import (
	"fmt"

	"atelier/internal/tui"

	"github.com/spf13/cobra"
)

func newBrowseCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse patterns interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := opts.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			selected, err := tui.Run(cmd.Context(), cat, opts.logger)
			if err != nil {
				return err
			}
			if selected != nil {
				fmt.Fprintln(cmd.OutOrStdout(), selected.ToolName())
			}
			return nil
		},
	}
}
