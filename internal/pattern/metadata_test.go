package pattern

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "identity section",
			content: "# IDENTITY and PURPOSE\n\nYou are an expert at summarizing content.\n\n# STEPS\n",
			want:    "You are an expert at summarizing content.",
		},
		{
			name:    "purpose section skips nested headings",
			content: "# PURPOSE\n## Details\n\n   Extract the wisdom.  \n",
			want:    "Extract the wisdom.",
		},
		{
			name:    "marker anywhere in the line",
			content: "intro\n### # IDENTITY\nFirst line after marker\n",
			want:    "First line after marker",
		},
		{
			name:    "fallback joins first paragraph",
			content: "# Title\n\nLine one\nLine two\n\nSecond paragraph\n",
			want:    "Line one Line two",
		},
		{
			name:    "marker with nothing after falls back to paragraph",
			content: "Lead text\n# IDENTITY\n",
			want:    "Lead text # IDENTITY",
		},
		{
			name:    "crlf line endings",
			content: "# IDENTITY\r\n\r\nWindows text\r\n",
			want:    "Windows text",
		},
		{
			name:    "only headings",
			content: "# One\n# Two\n",
			want:    "",
		},
		{
			name:    "empty",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDescription(tt.content))
		})
	}
}

func TestExtractDescription_TruncatesFallback(t *testing.T) {
	long := strings.Repeat("é", 250)
	got := ExtractDescription(long)

	assert.Equal(t, MaxFallbackDescriptionRunes, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestExtractDescription_MarkerLineIsNotTruncated(t *testing.T) {
	line := strings.Repeat("x", 300)
	got := ExtractDescription("# IDENTITY\n" + line)
	assert.Equal(t, line, got)
}

func TestExtractMetadata(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantCategory string
		wantTags     []string
	}{
		{
			name:         "security wins over coding",
			content:      "Find security issues in this code",
			wantCategory: "security",
			wantTags:     []string{"coding", "security"},
		},
		{
			name:         "writing before coding",
			content:      "An ESSAY about Software",
			wantCategory: "writing",
			wantTags:     []string{"coding", "writing"},
		},
		{
			name:         "tag-only rules",
			content:      "Analyze and summarize",
			wantCategory: "",
			wantTags:     []string{"analysis", "summarization"},
		},
		{
			name:         "all rules",
			content:      "threat article programming extract summary",
			wantCategory: "security",
			wantTags:     []string{"analysis", "coding", "security", "summarization", "writing"},
		},
		{
			name:         "no triggers",
			content:      "Tell a joke",
			wantCategory: "",
			wantTags:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, tags := ExtractMetadata(tt.content)
			if tt.wantCategory == "" {
				assert.Nil(t, category)
			} else {
				require.NotNil(t, category)
				assert.Equal(t, tt.wantCategory, *category)
			}
			assert.Equal(t, tt.wantTags, tags)
		})
	}
}

func TestExtractMetadata_TagsSortedAndUnique(t *testing.T) {
	_, tags := ExtractMetadata("security security vulnerability threat summary summarize")
	assert.Equal(t, []string{"security", "summarization"}, tags)
}
