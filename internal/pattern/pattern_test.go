package pattern

import "testing"

func strPtr(s string) *string { return &s }

func samplePattern() Pattern {
	return Pattern{
		Name:         "summarize",
		Description:  "Summarize content",
		SystemPrompt: "You summarize.",
		Category:     strPtr("writing"),
		Tags:         []string{"summarization", "writing"},
	}
}

func TestPatternMatches(t *testing.T) {
	p := samplePattern()

	tests := []struct {
		query string
		want  bool
	}{
		{"summar", true},
		{"SUMMAR", true},
		{"content", true},
		{"writing", true},
		{"WRIT", true},
		{"", true},
		{"security", false},
		{"coding", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := p.Matches(tt.query); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestPatternMatches_Category(t *testing.T) {
	p := Pattern{Name: "x", Description: "y", Category: strPtr("security")}
	if !p.Matches("secur") {
		t.Error("expected category match")
	}

	p.Category = nil
	if p.Matches("secur") {
		t.Error("absent category must not match")
	}
}

func TestToolName(t *testing.T) {
	p := samplePattern()
	if got := p.ToolName(); got != "fabric_summarize" {
		t.Errorf("ToolName() = %q, want fabric_summarize", got)
	}

	name, ok := NameFromToolName(p.ToolName())
	if !ok || name != "summarize" {
		t.Errorf("NameFromToolName round trip = (%q, %v)", name, ok)
	}

	if _, ok := NameFromToolName("summarize"); ok {
		t.Error("expected missing prefix to be rejected")
	}

	name, ok = NameFromToolName("fabric_")
	if !ok || name != "" {
		t.Errorf("NameFromToolName(fabric_) = (%q, %v), want (\"\", true)", name, ok)
	}
}

func TestHasUserPrompt(t *testing.T) {
	p := samplePattern()
	if p.HasUserPrompt() {
		t.Error("expected no user prompt")
	}
	p.UserPrompt = strPtr("")
	if !p.HasUserPrompt() {
		t.Error("an empty user.md is still present")
	}
}

func TestCategoryName(t *testing.T) {
	p := samplePattern()
	if p.CategoryName() != "writing" {
		t.Errorf("CategoryName() = %q", p.CategoryName())
	}
	p.Category = nil
	if p.CategoryName() != "" {
		t.Errorf("CategoryName() = %q, want empty", p.CategoryName())
	}
}
