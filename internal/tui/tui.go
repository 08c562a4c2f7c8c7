// Package tui provides the interactive pattern browser behind `atelier browse`.
//
// The browser is a Bubble Tea program with two panes: a filterable list of
// the catalog's patterns and a glamour-rendered preview of the selected one.
// Previews are rendered off the update loop, debounced while the selection
// moves and cached per pattern, format and width until the next reload.
// Pressing r reloads the catalog in place; Enter selects a pattern and exits.
package tui

import (
	"context"
	"fmt"

	"atelier/internal/catalog"
	"atelier/internal/logging"
	"atelier/internal/pattern"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the browser and blocks until the user quits. It returns the
// selected pattern, or nil when the user quit without selecting.
func Run(ctx context.Context, cat *catalog.Catalog, logger *logging.AppLogger) (*pattern.Pattern, error) {
	browser := NewBrowser(cat, logger)

	program := tea.NewProgram(browser,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("pattern browser failed: %w", err)
	}

	b, ok := final.(*Browser)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	return b.Selected(), nil
}
