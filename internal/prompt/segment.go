// Package prompt turns a user prompt and a requested duration into the
// ordered list of segments sent to the music provider.
package prompt

import (
	"regexp"
	"strings"
)

var (
	// partHeader matches "Part N ... Prompt:" on a single line
	partHeader = regexp.MustCompile(`(?i)Part \d+[^\n]*?Prompt:`)
	// partMarker matches the start of the next part
	partMarker = regexp.MustCompile(`(?i)Part \d+`)
)

// ParseStructured detects a multi-part prompt and returns the trimmed text of
// each part in the order the markers appear. An empty result means the prompt
// is not structured.
func ParseStructured(text string) []string {
	if !partHeader.MatchString(text) {
		return nil
	}

	var parts []string
	pos := 0
	for pos < len(text) {
		loc := partHeader.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		bodyStart := pos + loc[1]

		bodyEnd := len(text)
		if next := partMarker.FindStringIndex(text[bodyStart:]); next != nil {
			bodyEnd = bodyStart + next[0]
		}

		parts = append(parts, strings.TrimSpace(text[bodyStart:bodyEnd]))
		pos = bodyEnd
	}

	return parts
}
