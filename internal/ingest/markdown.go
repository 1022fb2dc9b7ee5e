package ingest

import (
	"regexp"
	"strings"
)

var (
	mdCodeBlock  = regexp.MustCompile("(?s)```.*?```")
	mdInlineCode = regexp.MustCompile("`([^`]+)`")
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEmphasis   = regexp.MustCompile(`(\*\*|\*)([^*\n]+)(\*\*|\*)`)
	mdListMarker = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	mdQuote      = regexp.MustCompile(`(?m)^>\s?`)
	mdRule       = regexp.MustCompile(`(?m)^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
)

// StripMarkdown removes common markdown syntax, keeping readable text.
// Headings and list items without closing punctuation become sentences of
// their own so the sentence chunker does not merge them with the next line.
func StripMarkdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdInlineCode.ReplaceAllString(content, "$1")
	content = mdRule.ReplaceAllString(content, "")
	content = mdQuote.ReplaceAllString(content, "")

	var out []string
	for _, line := range strings.Split(content, "\n") {
		structural := mdHeading.MatchString(line) || mdListMarker.MatchString(line)
		line = mdHeading.ReplaceAllString(line, "")
		line = mdListMarker.ReplaceAllString(line, "")
		line = mdEmphasis.ReplaceAllString(line, "$2")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if structural && !strings.ContainsAny(line[len(line)-1:], ".!?") {
			line += "."
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
