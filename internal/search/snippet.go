package search

import "strings"

const snippetLength = 300

// snippet extracts a window of content centered on the first occurrence
// of any query term, with ellipses marking truncation. Falls back to
// the leading content when no term occurs literally.
func snippet(content string, terms []string) string {
	content = strings.TrimSpace(content)
	if len(content) <= snippetLength {
		return content
	}

	lower := strings.ToLower(content)
	pos := -1
	for _, term := range terms {
		if i := strings.Index(lower, term); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}
	if pos < 0 {
		return truncate(content, snippetLength) + "..."
	}

	start := pos - snippetLength/2
	if start < 0 {
		start = 0
	}
	// Move to a rune boundary so the window never splits a character.
	for start > 0 && !isRuneStart(content[start]) {
		start--
	}

	end := start + snippetLength
	if end >= len(content) {
		end = len(content)
	} else {
		for end > start && !isRuneStart(content[end]) {
			end--
		}
	}

	out := strings.TrimSpace(content[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(content) {
		out += "..."
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
