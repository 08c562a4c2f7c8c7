package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"atelier/internal/pattern"
	"atelier/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
)

const minDescriptionWidth = 20

type listOptions struct {
	jsonOutput bool
	width      int
}

type patternSummary struct {
	Name        string   `json:"name"`
	Tool        string   `json:"tool"`
	Description string   `json:"description"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	UserPrompt  bool     `json:"userPrompt"`
}

func newListCmd(opts *cliOptions) *cobra.Command {
	var listOpts listOptions

	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "List patterns, optionally filtered by a search query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := opts.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}

			patterns := cat.Snapshot()
			if len(args) == 1 {
				patterns = cat.Search(args[0])
			}

			if listOpts.jsonOutput {
				return writePatternsJSON(cmd.OutOrStdout(), patterns)
			}
			return writePatternsTable(cmd.OutOrStdout(), patterns, listOpts.width)
		},
	}

	cmd.Flags().BoolVar(&listOpts.jsonOutput, "json", false, "output JSON")
	cmd.Flags().IntVar(&listOpts.width, "width", 100, "table width in columns")
	return cmd
}

func writePatternsJSON(w io.Writer, patterns []pattern.Pattern) error {
	out := make([]patternSummary, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, patternSummary{
			Name:        p.Name,
			Tool:        p.ToolName(),
			Description: p.Description,
			Category:    p.CategoryName(),
			Tags:        p.Tags,
			UserPrompt:  p.HasUserPrompt(),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writePatternsTable(w io.Writer, patterns []pattern.Pattern, width int) error {
	if len(patterns) == 0 {
		_, err := fmt.Fprintln(w, "No patterns found.")
		return err
	}

	nameWidth := len("NAME")
	categoryWidth := len("CATEGORY")
	for _, p := range patterns {
		nameWidth = max(nameWidth, lipgloss.Width(p.Name))
		categoryWidth = max(categoryWidth, lipgloss.Width(p.CategoryName()))
	}
	// Two cells of padding per column
	nameWidth += 2
	categoryWidth += 2
	descWidth := max(width-nameWidth-categoryWidth-2, minDescriptionWidth)

	row := func(style lipgloss.Style, name, category, desc string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			style.Width(nameWidth).Render(name),
			style.Width(categoryWidth).Render(category),
			style.Render(wordwrap.String(desc, descWidth)),
		)
	}

	var sb strings.Builder
	sb.WriteString(row(styles.TableHeaderStyle, "NAME", "CATEGORY", "DESCRIPTION"))
	sb.WriteString("\n")
	sb.WriteString(styles.TableBorderStyle.Render(strings.Repeat("─", nameWidth+categoryWidth+descWidth+2)))
	sb.WriteString("\n")
	for _, p := range patterns {
		sb.WriteString(row(styles.TableCellStyle, p.Name, p.CategoryName(), p.Description))
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n%d pattern(s)\n", len(patterns))

	_, err := io.WriteString(w, sb.String())
	return err
}
