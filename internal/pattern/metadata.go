package pattern

import (
	"slices"
	"strings"
)

// MaxFallbackDescriptionRunes bounds a description taken from the first paragraph.
const MaxFallbackDescriptionRunes = 200

// descriptionMarkers introduce the section whose first line is the description.
var descriptionMarkers = []string{"# IDENTITY", "# PURPOSE"}

// keywordRule assigns a tag, and optionally a category, when any trigger
// occurs in the lowercased system prompt.
type keywordRule struct {
	triggers []string
	category string
	tag      string
}

// Rules are evaluated in order; the first rule with a category wins.
var keywordRules = []keywordRule{
	{triggers: []string{"security", "threat", "vulnerability"}, category: "security", tag: "security"},
	{triggers: []string{"writing", "essay", "article"}, category: "writing", tag: "writing"},
	{triggers: []string{"code", "programming", "software"}, category: "coding", tag: "coding"},
	{triggers: []string{"analyze", "analysis", "extract"}, tag: "analysis"},
	{triggers: []string{"summarize", "summary"}, tag: "summarization"},
}

// ExtractDescription derives a one-line description from system prompt text.
//
// The first non-empty line not starting with '#' after a line containing
// "# IDENTITY" or "# PURPOSE" is used. Otherwise the first paragraph after
// leading blank and heading lines is joined with spaces and truncated to
// MaxFallbackDescriptionRunes.
func ExtractDescription(content string) string {
	lines := splitLines(content)

	for i, line := range lines {
		if !containsAny(line, descriptionMarkers) {
			continue
		}
		for _, next := range lines[i+1:] {
			desc := strings.TrimSpace(next)
			if desc != "" && !strings.HasPrefix(desc, "#") {
				return desc
			}
		}
	}

	// Fallback: first paragraph
	start := 0
	for start < len(lines) && (strings.TrimSpace(lines[start]) == "" || strings.HasPrefix(lines[start], "#")) {
		start++
	}
	end := start
	for end < len(lines) && strings.TrimSpace(lines[end]) != "" {
		end++
	}

	paragraph := strings.Join(lines[start:end], " ")
	runes := []rune(paragraph)
	if len(runes) > MaxFallbackDescriptionRunes {
		runes = runes[:MaxFallbackDescriptionRunes]
	}
	return string(runes)
}

// ExtractMetadata assigns a category and tags from keyword occurrences.
// Returned tags are deduplicated and sorted; category is nil when no
// category-bearing rule fired.
func ExtractMetadata(content string) (*string, []string) {
	lower := strings.ToLower(content)

	var category *string
	tags := []string{}
	for _, rule := range keywordRules {
		if !containsAny(lower, rule.triggers) {
			continue
		}
		if rule.category != "" && category == nil {
			c := rule.category
			category = &c
		}
		tags = append(tags, rule.tag)
	}

	slices.Sort(tags)
	return category, slices.Compact(tags)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// splitLines splits on '\n' and drops a trailing '\r' from each line.
// A final newline does not produce an extra empty line.
func splitLines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
