// Package pattern turns a directory of Fabric patterns into in-memory
// Pattern values.
//
// A pattern is a subdirectory of the patterns root holding a required
// system.md and an optional user.md. Descriptions, categories and tags are
// derived from the system prompt text, optionally overridden by YAML front
// matter at the top of system.md.
package pattern

import (
	"strings"
	"time"
)

// ToolPrefix is prepended to a pattern name to form its MCP tool name.
const ToolPrefix = "fabric_"

// Pattern is one ingested Fabric pattern.
type Pattern struct {
	// Name is the directory name and the unique key within a catalog
	Name string

	// Description is a one-line summary shown to MCP clients
	Description string

	// SystemPrompt is the content of system.md (without front matter); never empty
	SystemPrompt string

	// UserPrompt is the content of user.md when present
	UserPrompt *string

	// Category is the first category assigned by the keyword rules
	Category *string

	// Tags are deduplicated and sorted
	Tags []string

	// Path is the pattern directory
	Path string

	// Modified is the directory modification time at ingestion
	Modified time.Time
}

// ToolName returns the MCP tool name for the pattern.
func (p Pattern) ToolName() string {
	return ToolPrefix + p.Name
}

// HasUserPrompt reports whether the pattern carries a user prompt template.
func (p Pattern) HasUserPrompt() bool {
	return p.UserPrompt != nil
}

// CategoryName returns the category or an empty string.
func (p Pattern) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

// NameFromToolName strips the tool prefix. The second result is false when
// the prefix is missing.
func NameFromToolName(tool string) (string, bool) {
	return strings.CutPrefix(tool, ToolPrefix)
}

// Matches reports whether query occurs, case-insensitively, in the name,
// description, any tag or the category. An empty query matches everything.
func (p Pattern) Matches(query string) bool {
	q := strings.ToLower(query)

	if strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Description), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	if p.Category != nil && strings.Contains(strings.ToLower(*p.Category), q) {
		return true
	}
	return false
}
