package styles

import "github.com/charmbracelet/lipgloss"

// Shared Lip Gloss styles for the pattern browser and CLI output.
// All colors are specified using hex codes.

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff5fd2")).
			MarginBottom(1).
			PaddingLeft(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			PaddingLeft(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff005f")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff5f")).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("#a8a8a8")).
			Padding(0, 1)

	// Pattern metadata
	CategoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5fd7ff")).
			Bold(true)

	TagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#afaf87"))

	// Table output for `atelier list`
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#ff5fd2")).
				Padding(0, 1)

	TableCellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	TableBorderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#5f5fff"))

	HeaderContainerStyle = lipgloss.NewStyle().
				MarginLeft(1).
				MarginBottom(1)

	HelpContainerStyle = lipgloss.NewStyle().
				MarginLeft(1).
				MarginTop(1)

	MainContainerStyle = lipgloss.NewStyle().
				MarginLeft(1)

	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5f5fff")).
			PaddingLeft(2).
			PaddingRight(1)

	// Focused pane variant that highlights the active pane.
	PaneFocusedStyle = PaneStyle.
				BorderForeground(lipgloss.Color("#ff5faf"))
)
