package util

import (
	"regexp"
	"strings"
)

var (
	blankLinesRe = regexp.MustCompile(`\n\s*\n+`)
	bulletRe     = regexp.MustCompile(`^\s*[■▶*]\s*`)
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// PreprocessText normalizes multi-line page text: blank runs collapse, every
// line is trimmed, empty lines are dropped and a leading bullet glyph
// (■, ▶ or *) is removed from each line.
func PreprocessText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = blankLinesRe.ReplaceAllString(text, "\n")

	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = bulletRe.ReplaceAllString(strings.TrimSpace(line), "")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
