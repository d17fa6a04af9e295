package summarize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromSummary_Heading(t *testing.T) {
	assert.Equal(t, "Hello World", TitleFromSummary("# Hello World\nsome body text"))
	assert.Equal(t, "Deep Dive", TitleFromSummary("intro line\n\n## Deep Dive\nmore"))
}

func TestTitleFromSummary_FirstLine(t *testing.T) {
	assert.Equal(t, "A plain first line", TitleFromSummary("A plain first line\nsecond line"))
	// Leading markdown punctuation is stripped.
	assert.Equal(t, "bullet point intro", TitleFromSummary("- bullet point intro\nrest"))
	assert.Equal(t, "emphasized start", TitleFromSummary("* emphasized start"))
}

func TestTitleFromSummary_LongLineTruncated(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := TitleFromSummary(long)
	assert.Len(t, []rune(got), 100)
	assert.Equal(t, strings.Repeat("x", 97)+"...", got)
}

func TestTitleFromSummary_HundredCharsVerbatim(t *testing.T) {
	exact := strings.Repeat("y", 100)
	assert.Equal(t, exact, TitleFromSummary(exact))
}

func TestTitleFromSummary_Fallback(t *testing.T) {
	assert.Equal(t, "Untitled Note", TitleFromSummary(""))
	assert.Equal(t, "Untitled Note", TitleFromSummary("\n\n   \n"))
	// First non-blank line that is punctuation only.
	assert.Equal(t, "Untitled Note", TitleFromSummary("-\nreal content later"))
}
