package summarize

import (
	"regexp"
	"strings"
)

const fallbackTitle = "Untitled Note"

var (
	headingPattern        = regexp.MustCompile(`(?m)^#+\s+(.+)$`)
	markdownPrefixPattern = regexp.MustCompile(`^[#*-]\s*`)
)

// TitleFromSummary derives a short human-readable title from a markdown
// summary: the first heading's content, else the first non-blank line
// stripped of leading markdown punctuation (truncated past 100 characters),
// else a literal fallback. Pure and total; always non-empty.
func TitleFromSummary(summaryMd string) string {
	if m := headingPattern.FindStringSubmatch(summaryMd); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, line := range strings.Split(summaryMd, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cleaned := strings.TrimSpace(markdownPrefixPattern.ReplaceAllString(line, ""))
		runes := []rune(cleaned)
		if len(runes) > 0 && len(runes) <= 100 {
			return cleaned
		}
		if len(runes) > 100 {
			return string(runes[:97]) + "..."
		}
		// Line was markdown punctuation only; fall through to the default.
		break
	}

	return fallbackTitle
}
