package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"atelier/internal/catalog"
	"atelier/internal/logging"
	"atelier/internal/pattern"
	"atelier/internal/tui/styles"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// focusedPane identifies which pane (list or preview) has keyboard focus
type focusedPane int

const (
	focusList focusedPane = iota
	focusPreview
)

const (
	defaultDebounce      = 150 * time.Millisecond
	defaultCacheCapBytes = 1 << 20
	reloadTimeout        = 30 * time.Second
)

type (
	// PatternsReadyMsg replaces the patterns shown in the list.
	PatternsReadyMsg struct {
		Patterns []pattern.Pattern
	}

	// ReloadFailedMsg reports a failed catalog reload. The list keeps its
	// previous contents.
	ReloadFailedMsg struct {
		Err error
	}

	debouncedPreviewMsg struct {
		name string
		seq  uint64
	}

	previewRenderedMsg struct {
		content  string
		name     string
		renderID uint64
		key      previewKey
	}

	previewErrorMsg struct {
		err      error
		name     string
		renderID uint64
	}
)

// patternItem adapts a pattern to list.Item.
type patternItem struct {
	pattern pattern.Pattern
}

func (i patternItem) Title() string { return i.pattern.Name }

func (i patternItem) Description() string {
	if c := i.pattern.CategoryName(); c != "" {
		return "[" + c + "] " + i.pattern.Description
	}
	return i.pattern.Description
}

func (i patternItem) FilterValue() string {
	return strings.Join(append([]string{i.pattern.Name, i.pattern.CategoryName()}, i.pattern.Tags...), " ")
}

// Browser is a two-pane pattern browser: a filterable list on the left and
// a Markdown preview of the selected pattern on the right.
type Browser struct {
	logger  *logging.AppLogger
	catalog *catalog.Catalog

	title    string
	subtitle string
	list     list.Model
	viewport viewport.Model
	keys     KeyMap
	help     help.Model
	selected *pattern.Pattern
	status   string
	statusOK bool

	windowWidth  int
	windowHeight int

	currentRenderID   uint64
	renderCounter     *uint64
	cache             *previewCache
	generation        uint64
	debounceDuration  time.Duration
	pendingDebounceID uint64

	useGlamour   bool
	glamourStyle string

	focusPane focusedPane
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithGlamourStyle fixes the preview style instead of detecting it.
func WithGlamourStyle(style string) BrowserOption {
	return func(b *Browser) { b.glamourStyle = style }
}

// WithDebounce sets the delay before a new selection is rendered.
func WithDebounce(d time.Duration) BrowserOption {
	return func(b *Browser) { b.debounceDuration = d }
}

// NewBrowser creates a browser over the catalog's current snapshot.
func NewBrowser(cat *catalog.Catalog, logger *logging.AppLogger, opts ...BrowserOption) *Browser {
	if logger == nil {
		logger = logging.GetDefault()
	}

	patterns := cat.Snapshot()
	l := list.New(toItems(patterns), list.NewDefaultDelegate(), 0, 0)
	l.Title = "Patterns"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true

	renderCounter := uint64(0)

	b := &Browser{
		logger:           logger,
		catalog:          cat,
		title:            "Fabric Patterns",
		subtitle:         subtitleFor(len(patterns)),
		list:             l,
		viewport:         vp,
		keys:             DefaultKeyMap(),
		help:             help.New(),
		renderCounter:    &renderCounter,
		cache:            newPreviewCache(defaultCacheCapBytes),
		debounceDuration: defaultDebounce,
		useGlamour:       true,
		focusPane:        focusList,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Selected returns the pattern chosen with Enter, or nil.
func (b *Browser) Selected() *pattern.Pattern {
	return b.selected
}

func (b *Browser) Init() tea.Cmd {
	if b.glamourStyle == "" {
		b.glamourStyle = detectGlamourStyle(50 * time.Millisecond)
		b.logger.Debug("Glamour style selected", "style", b.glamourStyle)
	}

	if p, ok := b.selectedPattern(); ok {
		return b.scheduleDebouncedPreview(p.Name)
	}
	b.viewport.SetContent(emptyCatalogText)
	return nil
}

const emptyCatalogText = "No patterns found. Run 'atelier sync' or set fabric.patterns_dir."

func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	b.logger.LogMessage(msg)

	var cmds []tea.Cmd
	oldName := b.selectedName()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
		return b, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		b.viewport, cmd = b.viewport.Update(msg)
		return b, cmd

	case list.FilterMatchesMsg:
		var cmd tea.Cmd
		b.list, cmd = b.list.Update(msg)
		return b, cmd

	case PatternsReadyMsg:
		b.logger.Debug("Patterns ready", "count", len(msg.Patterns))
		cmds = append(cmds, b.list.SetItems(toItems(msg.Patterns)))
		b.list.ResetSelected()
		b.viewport.GotoTop()
		b.generation++
		b.cache.retainGeneration(b.generation)
		b.subtitle = subtitleFor(len(msg.Patterns))
		b.setStatus("Reloaded "+subtitleFor(len(msg.Patterns)), true)

		if p, ok := b.selectedPattern(); ok {
			cmds = append(cmds, b.scheduleDebouncedPreview(p.Name))
		} else {
			b.viewport.SetContent(emptyCatalogText)
		}
		return b, tea.Batch(cmds...)

	case ReloadFailedMsg:
		b.logger.Error("Catalog reload failed", "error", msg.Err)
		b.setStatus("Reload failed: "+msg.Err.Error(), false)
		return b, nil

	case previewRenderedMsg:
		if msg.key.generation != b.generation {
			b.logger.Debug("Dropping preview from an earlier catalog", "name", msg.name, "renderID", msg.renderID)
			return b, nil
		}
		b.cache.put(msg.key, msg.content)
		if msg.name == b.selectedName() && msg.renderID >= b.currentRenderID {
			b.currentRenderID = msg.renderID
			b.viewport.SetContent(msg.content)
			b.viewport.GotoTop()
		} else {
			b.logger.Debug("Preview cached but not displayed", "name", msg.name, "renderID", msg.renderID)
		}
		return b, nil

	case previewErrorMsg:
		if msg.name == b.selectedName() && msg.renderID >= b.currentRenderID {
			b.currentRenderID = msg.renderID
			b.logger.Error("Error rendering preview", "error", msg.err, "name", msg.name)
			b.viewport.SetContent(fmt.Sprintf("Error rendering %s: %v", msg.name, msg.err))
		}
		return b, nil

	case debouncedPreviewMsg:
		if msg.seq != b.pendingDebounceID || msg.name != b.selectedName() {
			return b, nil
		}
		if cached, ok := b.cache.get(b.cacheKey(msg.name, b.useGlamour)); ok {
			b.viewport.SetContent(cached)
			return b, nil
		}
		if p, ok := b.selectedPattern(); ok {
			return b, b.renderPreview(p, b.useGlamour)
		}
		return b, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return b, tea.Quit
		}

		// While filtering, every key (including q and esc) belongs to the filter input
		if b.list.FilterState() == list.Filtering {
			return b, b.updateList(msg, oldName)
		}

		switch {
		case key.Matches(msg, b.keys.FocusRight):
			b.focusPane = focusPreview
			return b, nil
		case key.Matches(msg, b.keys.FocusLeft):
			b.focusPane = focusList
			return b, nil
		}

		if b.focusPane == focusPreview {
			switch msg.String() {
			case "up", "down", "pgup", "pgdown", "ctrl+u", "ctrl+d", "home", "end", "k", "j":
				var cmd tea.Cmd
				b.viewport, cmd = b.viewport.Update(msg)
				return b, cmd
			}
		}

		switch {
		case key.Matches(msg, b.keys.Select):
			if p, ok := b.selectedPattern(); ok {
				b.logger.Debug("Pattern selected", "name", p.Name)
				b.selected = &p
				return b, tea.Quit
			}
			return b, nil

		case key.Matches(msg, b.keys.Quit):
			return b, tea.Quit

		case key.Matches(msg, b.keys.Reload):
			b.setStatus("Reloading patterns...", true)
			return b, b.reloadCatalog()

		case key.Matches(msg, b.keys.ToggleFormat):
			b.useGlamour = !b.useGlamour
			p, ok := b.selectedPattern()
			if !ok {
				return b, nil
			}
			if cached, ok := b.cache.get(b.cacheKey(p.Name, b.useGlamour)); ok {
				b.viewport.SetContent(cached)
				return b, nil
			}
			return b, b.renderPreview(p, b.useGlamour)
		}

		return b, b.updateList(msg, oldName)
	}

	return b, tea.Batch(cmds...)
}

// updateList forwards msg to the list and schedules a preview when the
// selection changes or filtering ends.
func (b *Browser) updateList(msg tea.Msg, oldName string) tea.Cmd {
	prev := b.list.FilterState()

	var cmds []tea.Cmd
	var cmd tea.Cmd
	b.list, cmd = b.list.Update(msg)
	cmds = append(cmds, cmd)

	if b.list.FilterState() == list.Filtering {
		return tea.Batch(cmds...)
	}

	newName := b.selectedName()
	filterEnded := prev == list.Filtering
	if newName != "" && (newName != oldName || filterEnded) {
		if cached, ok := b.cache.get(b.cacheKey(newName, b.useGlamour)); ok {
			b.viewport.SetContent(cached)
		} else {
			cmds = append(cmds, b.scheduleDebouncedPreview(newName))
		}
	}
	return tea.Batch(cmds...)
}

func (b *Browser) resize(width, height int) {
	b.windowWidth = width
	b.windowHeight = height
	b.help.Width = width

	frameW, frameH := styles.PaneStyle.GetFrameSize()
	const mainLeftMargin = 1
	avail := max(width-frameW*2-mainLeftMargin, 0)

	listWidth := max(avail/3, 20)
	vpWidth := max(avail-listWidth, 30)

	headerH := lipgloss.Height(b.headerView())
	helpH := lipgloss.Height(b.helpView())
	contentHeight := max(height-headerH-helpH-frameH, 5)

	b.list.SetSize(listWidth, contentHeight)
	b.viewport.Width = vpWidth
	b.viewport.Height = contentHeight

	b.logger.Debug("Window resized", "width", width, "height", height, "list_width", listWidth, "viewport_width", vpWidth)
}

func (b *Browser) View() string {
	listStyle := styles.PaneStyle
	vpStyle := styles.PaneStyle
	switch b.focusPane {
	case focusList:
		listStyle = styles.PaneFocusedStyle
	case focusPreview:
		vpStyle = styles.PaneFocusedStyle
	}

	listStyle = listStyle.Width(b.list.Width()).Height(b.list.Height())
	vpStyle = vpStyle.Width(b.viewport.Width).Height(b.viewport.Height)

	panes := lipgloss.JoinHorizontal(
		lipgloss.Top,
		listStyle.Render(b.list.View()),
		vpStyle.Render(b.viewport.View()),
	)
	panes = styles.MainContainerStyle.Render(panes)

	return lipgloss.JoinVertical(lipgloss.Left, b.headerView(), panes, b.helpView())
}

func (b *Browser) headerView() string {
	header := styles.TitleStyle.Render(b.title)
	if b.subtitle != "" {
		header = lipgloss.JoinVertical(lipgloss.Left, header, styles.SubtitleStyle.Render(b.subtitle))
	}
	return styles.HeaderContainerStyle.Render(header)
}

func (b *Browser) helpView() string {
	view := styles.HelpStyle.Render(b.help.View(b.keys))
	if b.status != "" {
		statusStyle := styles.ErrorStyle
		if b.statusOK {
			statusStyle = styles.SuccessStyle
		}
		view = lipgloss.JoinVertical(lipgloss.Left, statusStyle.Render(b.status), view)
	}
	return styles.HelpContainerStyle.Render(view)
}

func (b *Browser) setStatus(text string, ok bool) {
	b.status = text
	b.statusOK = ok
}

func (b *Browser) selectedPattern() (pattern.Pattern, bool) {
	item, ok := b.list.SelectedItem().(patternItem)
	if !ok {
		return pattern.Pattern{}, false
	}
	return item.pattern, true
}

func (b *Browser) selectedName() string {
	if p, ok := b.selectedPattern(); ok {
		return p.Name
	}
	return ""
}

// cacheKey names the preview of a pattern as it would be rendered now. Plain
// previews are not wrapped, so they share one entry across widths.
func (b *Browser) cacheKey(name string, glamourOn bool) previewKey {
	key := previewKey{name: name, generation: b.generation, glamour: glamourOn}
	if glamourOn {
		key.width = b.previewWidth()
	}
	return key
}

func (b *Browser) previewWidth() int {
	if width := b.viewport.Width - 2; width > 0 {
		return width
	}
	return 80
}

func (b *Browser) scheduleDebouncedPreview(name string) tea.Cmd {
	b.viewport.SetContent("Loading " + name + "...")
	seq := atomic.AddUint64(&b.pendingDebounceID, 1)
	return tea.Tick(b.debounceDuration, func(time.Time) tea.Msg {
		return debouncedPreviewMsg{name: name, seq: seq}
	})
}

func (b *Browser) renderPreview(p pattern.Pattern, glamourOn bool) tea.Cmd {
	renderID := atomic.AddUint64(b.renderCounter, 1)
	width := b.previewWidth()
	style := b.glamourStyle
	key := b.cacheKey(p.Name, glamourOn)

	return func() tea.Msg {
		markdown := PreviewMarkdown(p)
		if !glamourOn {
			return previewRenderedMsg{content: markdown, name: p.Name, renderID: renderID, key: key}
		}

		rendered, err := RenderMarkdown(markdown, style, width)
		if err != nil {
			return previewErrorMsg{err: err, name: p.Name, renderID: renderID}
		}
		return previewRenderedMsg{content: rendered, name: p.Name, renderID: renderID, key: key}
	}
}

func (b *Browser) reloadCatalog() tea.Cmd {
	cat := b.catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()

		if err := cat.Reload(ctx); err != nil {
			return ReloadFailedMsg{Err: err}
		}
		return PatternsReadyMsg{Patterns: cat.Snapshot()}
	}
}

// PreviewMarkdown formats a pattern as a Markdown document.
func PreviewMarkdown(p pattern.Pattern) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", p.Description)
	}
	if c := p.CategoryName(); c != "" {
		fmt.Fprintf(&sb, "**Category:** %s\n\n", c)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&sb, "**Tags:** %s\n\n", strings.Join(p.Tags, ", "))
	}
	fmt.Fprintf(&sb, "**Tool:** `%s`\n\n---\n\n", p.ToolName())
	sb.WriteString(p.SystemPrompt)
	if p.UserPrompt != nil {
		sb.WriteString("\n\n---\n\n## User Prompt Template\n\n")
		sb.WriteString(*p.UserPrompt)
	}
	sb.WriteString("\n")
	return sb.String()
}

// RenderMarkdown renders markdown for the terminal with a glamour style.
func RenderMarkdown(markdown, style string, width int) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// detectGlamourStyle picks "dark" or "light" from the terminal background,
// respecting GLAMOUR_STYLE when it names a concrete style. Detection that
// does not finish within timeout falls back to "dark".
func detectGlamourStyle(timeout time.Duration) string {
	style := os.Getenv("GLAMOUR_STYLE")
	if style != "" && style != "auto" {
		return style
	}

	ch := make(chan string, 1)
	go func() {
		if termenv.NewOutput(os.Stdout).HasDarkBackground() {
			ch <- "dark"
			return
		}
		ch <- "light"
	}()

	select {
	case s := <-ch:
		return s
	case <-time.After(timeout):
		return "dark"
	}
}

// DetectGlamourStyle is detectGlamourStyle with the default timeout.
func DetectGlamourStyle() string {
	return detectGlamourStyle(50 * time.Millisecond)
}

func toItems(patterns []pattern.Pattern) []list.Item {
	items := make([]list.Item, len(patterns))
	for i, p := range patterns {
		items[i] = patternItem{pattern: p}
	}
	return items
}

func subtitleFor(n int) string {
	if n == 1 {
		return "1 pattern"
	}
	return fmt.Sprintf("%d patterns", n)
}
