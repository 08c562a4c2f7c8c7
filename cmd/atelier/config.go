package main

import (
	"fmt"
	"os"

	"atelier/internal/config"
	"atelier/internal/tui/styles"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the user config path",
		Args:  cobra.NoArgs,
		// The file may not exist yet, so skip the root's config loading
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				var err error
				if path, err = config.ConfigPath(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.SuccessStyle.Render("Wrote "+path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration and pattern search order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(opts.cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}

			fmt.Fprintln(out, "\n# pattern roots, in search order")
			for _, c := range opts.newLoader().Candidates() {
				fmt.Fprintf(out, "# - %s\n", c)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
