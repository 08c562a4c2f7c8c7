package pattern

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"atelier/internal/logging"
	"atelier/pkg/fileops"

	"github.com/adrg/frontmatter"
	"github.com/adrg/xdg"
)

const (
	// SystemFile is the required primary prompt of a pattern
	SystemFile = "system.md"

	// UserFile is the optional user prompt template
	UserFile = "user.md"

	// SubmodulePatternsDir is where a checkout of the fabric repository keeps its patterns
	SubmodulePatternsDir = "data/fabric/data/patterns"

	// DefaultMaxFileSize bounds system.md when no limit is configured
	DefaultMaxFileSize int64 = 5 * 1024 * 1024
)

// RootNotFoundError is returned when none of the candidate roots exist.
type RootNotFoundError struct {
	Tried []string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("pattern directory not found, tried: %s", strings.Join(e.Tried, ", "))
}

// InvalidPatternError reports a pattern directory that could not be ingested.
type InvalidPatternError struct {
	Name   string
	Reason string
	Err    error
}

func (e *InvalidPatternError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid pattern %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid pattern %q: %s", e.Name, e.Reason)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// Frontmatter is the optional metadata block at the top of system.md.
type Frontmatter struct {
	Description string   `yaml:"description" toml:"description"`
	Category    string   `yaml:"category" toml:"category"`
	Tags        []string `yaml:"tags" toml:"tags"`
}

// DefaultCandidates returns the ordered list of roots searched when resolving
// the patterns directory. The configured directory comes first when set.
func DefaultCandidates(configured string) []string {
	var candidates []string
	if configured != "" {
		candidates = append(candidates, fileops.ExpandPath(configured))
	}
	candidates = append(candidates, SubmodulePatternsDir)

	if home := os.Getenv("HOME"); home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", "fabric", "patterns"))
	} else {
		candidates = append(candidates, filepath.Join(xdg.ConfigHome, "fabric", "patterns"))
	}
	return candidates
}

// ResolveRoot returns the first candidate that exists as a directory.
func ResolveRoot(candidates []string) (string, error) {
	tried := make([]string, 0, len(candidates))
	for _, c := range candidates {
		tried = append(tried, c)
		if fileops.DirExists(c) {
			return c, nil
		}
	}
	return "", &RootNotFoundError{Tried: tried}
}

// Loader scans a patterns root and produces Pattern values.
type Loader struct {
	candidates  []string
	maxFileSize int64
	logger      *logging.AppLogger

	mu  sync.Mutex
	dir string
}

// NewLoader creates a loader that searches DefaultCandidates(configuredDir) on
// every LoadAll. A maxFileSize of zero or less selects DefaultMaxFileSize.
func NewLoader(configuredDir string, maxFileSize int64, logger *logging.AppLogger) *Loader {
	return newLoader(DefaultCandidates(configuredDir), maxFileSize, logger)
}

// WithDirectory creates a loader bound to a single root.
func WithDirectory(dir string, logger *logging.AppLogger) *Loader {
	return newLoader([]string{dir}, DefaultMaxFileSize, logger)
}

func newLoader(candidates []string, maxFileSize int64, logger *logging.AppLogger) *Loader {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Loader{
		candidates:  candidates,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Dir returns the root used by the most recent successful resolution, or
// the first candidate if none has happened yet.
func (l *Loader) Dir() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dir == "" && len(l.candidates) > 0 {
		return l.candidates[0]
	}
	return l.dir
}

// Candidates returns the roots searched on each load.
func (l *Loader) Candidates() []string {
	return slices.Clone(l.candidates)
}

// LoadAll resolves the root and loads every pattern beneath it. Directories
// that fail ingestion are logged and skipped. The error is non-nil only when
// no root exists, the root cannot be read, or ctx is cancelled.
func (l *Loader) LoadAll(ctx context.Context) ([]Pattern, error) {
	root, err := ResolveRoot(l.candidates)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.dir = root
	l.mu.Unlock()

	l.logger.Info("Loading patterns", "dir", root)

	dirs, err := fileops.ListSubdirectories(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pattern directory: %w", err)
	}

	patterns := make([]Pattern, 0, len(dirs))
	var skipped int

	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := l.loadPattern(d)
		if err != nil {
			l.logger.Warn("Skipping pattern", "path", d.Path, "error", err)
			skipped++
			continue
		}

		l.logger.Debug("Loaded pattern", "name", p.Name)
		patterns = append(patterns, p)
	}

	l.logger.Info("Pattern loading completed",
		"loaded", len(patterns),
		"skipped", skipped)

	return patterns, nil
}

// LoadPattern ingests a single pattern directory.
func (l *Loader) LoadPattern(dir string) (Pattern, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Pattern{}, &InvalidPatternError{Name: filepath.Base(dir), Reason: "cannot stat directory", Err: err}
	}
	if !info.IsDir() {
		return Pattern{}, &InvalidPatternError{Name: filepath.Base(dir), Reason: "not a directory"}
	}
	return l.loadPattern(fileops.DirInfo{
		Name:    filepath.Base(dir),
		Path:    dir,
		ModTime: info.ModTime(),
	})
}

func (l *Loader) loadPattern(d fileops.DirInfo) (Pattern, error) {
	// Read system.md (required)
	raw, err := fileops.ReadTextFile(filepath.Join(d.Path, SystemFile), l.maxFileSize)
	if err != nil {
		return Pattern{}, &InvalidPatternError{Name: d.Name, Reason: "failed to read " + SystemFile, Err: err}
	}

	// Split optional front matter from the prompt body. Prompts often open
	// with a markdown rule, so a block that does not decode is prompt text.
	var matter Frontmatter
	body, err := frontmatter.Parse(strings.NewReader(raw), &matter)
	if err != nil {
		l.logger.Debug("Treating undecodable front matter as prompt text", "name", d.Name, "error", err)
		matter = Frontmatter{}
		body = []byte(raw)
	}

	systemPrompt := string(body)
	if len(bytes.TrimSpace(body)) == 0 {
		return Pattern{}, &InvalidPatternError{Name: d.Name, Reason: SystemFile + " is empty"}
	}

	// Read user.md (optional); any failure means absent
	var userPrompt *string
	if content, err := fileops.ReadTextFile(filepath.Join(d.Path, UserFile), l.maxFileSize); err == nil {
		userPrompt = &content
	} else if !errors.Is(err, fileops.ErrNotExist) {
		l.logger.Debug("Ignoring unreadable user prompt", "name", d.Name, "error", err)
	}

	description := ExtractDescription(systemPrompt)
	category, tags := ExtractMetadata(systemPrompt)

	// Front matter overrides the heuristics
	if matter.Description != "" {
		description = strings.TrimSpace(matter.Description)
	}
	if matter.Category != "" {
		c := strings.TrimSpace(matter.Category)
		category = &c
	}
	if len(matter.Tags) > 0 {
		tags = normalizeTags(matter.Tags)
	}

	return Pattern{
		Name:         d.Name,
		Description:  description,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Category:     category,
		Tags:         tags,
		Path:         d.Path,
		Modified:     d.ModTime,
	}, nil
}

func normalizeTags(in []string) []string {
	tags := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}
