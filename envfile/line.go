package envfile

import (
	"regexp"
	"strings"
)

// Line is one parsed KEY=VALUE line of an env file.
type Line struct {
	Num   int    // 1-based line number
	Raw   string // Line text without its line terminator
	Key   string // Everything before the first '=' (verbatim)
	Value string // Everything after the first '='
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// SplitLines splits env file content on "\n" and "\r\n".
// A trailing newline yields a final empty element so that joining
// with "\n" reproduces it.
func SplitLines(content string) []string {
	return lineBreak.Split(content, -1)
}

// ParseLine splits raw on its first '='. It returns false for blank lines,
// comments, lines without '=' and lines with an empty key.
func ParseLine(raw string) (Line, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Line{}, false
	}

	key, value, found := strings.Cut(raw, "=")
	if !found || key == "" {
		return Line{}, false
	}
	return Line{Raw: raw, Key: key, Value: value}, true
}

// ParseContent returns every KEY=VALUE line of content with line numbers.
func ParseContent(content string) []Line {
	var lines []Line
	for i, raw := range SplitLines(content) {
		line, ok := ParseLine(raw)
		if !ok {
			continue
		}
		line.Num = i + 1
		lines = append(lines, line)
	}
	return lines
}
