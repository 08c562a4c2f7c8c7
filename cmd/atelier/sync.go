package main

import (
	"fmt"

	"atelier/internal/repository"
	"atelier/internal/tui/styles"

	"github.com/spf13/cobra"
)

func newSyncCmd(opts *cliOptions) *cobra.Command {
	var url, branch, path string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Clone or update the Fabric repository that provides the bundled patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fabric := opts.cfg.Fabric
			if url != "" {
				fabric.RepoURL = url
			}
			if branch != "" {
				fabric.RepoBranch = branch
			}
			if path != "" {
				fabric.RepoPath = path
			}

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			result, err := repository.NewFabricRepo(fabric).Sync(ctx, opts.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case result.Cloned:
				fmt.Fprintln(out, styles.SuccessStyle.Render("Cloned "+fabric.RepoURL))
			case result.Skipped:
				fmt.Fprintln(out, styles.ErrorStyle.Render("Local changes present, update skipped"))
			case result.Updated:
				fmt.Fprintln(out, styles.SuccessStyle.Render("Updated to latest"))
			default:
				fmt.Fprintln(out, "Already up to date")
			}
			fmt.Fprintf(out, "Patterns: %s\n", result.PatternsDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "repository URL (defaults to fabric.repo_url)")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to track (defaults to the remote HEAD)")
	cmd.Flags().StringVar(&path, "path", "", "local clone path (defaults to fabric.repo_path)")
	return cmd
}
