package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"atelier/internal/pattern"
	"atelier/internal/tui"

	"github.com/spf13/cobra"
)

func newShowCmd(opts *cliOptions) *cobra.Command {
	var (
		raw   bool
		width int
	)

	cmd := &cobra.Command{
		Use:   "show <pattern|dir>",
		Short: "Render a pattern's prompts as markdown",
		Long: "Render a pattern's prompts as markdown. An argument containing a path\n" +
			"separator is loaded directly as a pattern directory, outside the catalog.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.resolvePattern(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			md := tui.PreviewMarkdown(p)
			if raw {
				_, err := fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}

			out, err := tui.RenderMarkdown(md, tui.DetectGlamourStyle(), width)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	cmd.Flags().IntVar(&width, "width", 100, "wrap width")
	return cmd
}

func (o *cliOptions) resolvePattern(ctx context.Context, arg string) (pattern.Pattern, error) {
	if !strings.ContainsRune(arg, filepath.Separator) && !strings.ContainsRune(arg, '/') {
		return o.findPattern(ctx, arg)
	}
	return o.newLoader().LoadPattern(arg)
}
