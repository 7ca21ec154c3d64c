package utils

import "strings"

// CleanMarkdown strips the outer fenced code block that models
// sometimes wrap around a whole markdown answer. Fences inside the
// text are left alone.
func CleanMarkdown(input string) string {
	s := strings.TrimSpace(input)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") {
		return s
	}
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "markdown")
	return strings.TrimSpace(s)
}
