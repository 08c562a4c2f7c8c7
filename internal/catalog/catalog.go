// Package catalog holds the set of loaded patterns behind a read/write lock.
//
// Readers always observe one complete generation: a reload builds the new
// slice without holding the lock and then swaps it in.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"atelier/internal/logging"
	"atelier/internal/pattern"
)

// Source produces a fresh generation of patterns.
type Source interface {
	LoadAll(ctx context.Context) ([]pattern.Pattern, error)
}

// Observer is notified after each successful replacement.
type Observer interface {
	CatalogReplaced(size int)
}

// Catalog is a concurrently readable, atomically replaceable pattern list.
type Catalog struct {
	mu       sync.RWMutex
	patterns []pattern.Pattern

	source   Source
	observer Observer
	logger   *logging.AppLogger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithObserver registers an observer for replacements.
func WithObserver(o Observer) Option {
	return func(c *Catalog) { c.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *logging.AppLogger) Option {
	return func(c *Catalog) { c.logger = l }
}

// New creates an empty catalog backed by source.
func New(source Source, opts ...Option) *Catalog {
	c := &Catalog{source: source}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.GetDefault()
	}
	return c
}

// Load creates a catalog and performs the first ingestion. It fails when
// the source fails, for example when no pattern root exists.
func Load(ctx context.Context, source Source, opts ...Option) (*Catalog, error) {
	c := New(source, opts...)
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Snapshot returns the current generation. The returned slice must not be modified.
func (c *Catalog) Snapshot() []pattern.Pattern {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.patterns
}

// Len returns the number of patterns.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.patterns)
}

// Find returns the pattern with the given name.
func (c *Catalog) Find(name string) (pattern.Pattern, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.patterns {
		if p.Name == name {
			return p, true
		}
	}
	return pattern.Pattern{}, false
}

// Search returns the patterns matching query, in catalog order.
func (c *Catalog) Search(query string) []pattern.Pattern {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matches := make([]pattern.Pattern, 0)
	for _, p := range c.patterns {
		if p.Matches(query) {
			matches = append(matches, p)
		}
	}
	return matches
}

// Replace swaps in a new generation.
func (c *Catalog) Replace(patterns []pattern.Pattern) {
	c.mu.Lock()
	c.patterns = patterns
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.CatalogReplaced(len(patterns))
	}
}

// Reload loads a new generation from the source and replaces the current
// one. On failure the current generation is left untouched.
func (c *Catalog) Reload(ctx context.Context) error {
	if c.source == nil {
		return fmt.Errorf("catalog has no pattern source")
	}

	patterns, err := c.source.LoadAll(ctx)
	if err != nil {
		c.logger.Error("Failed to reload patterns", "error", err)
		return fmt.Errorf("failed to reload patterns: %w", err)
	}

	c.Replace(patterns)
	c.logger.Info("Patterns reloaded", "count", len(patterns))
	return nil
}
