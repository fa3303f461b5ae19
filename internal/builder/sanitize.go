package builder

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxFieldChars bounds any single value embedded in a prompt.
const maxFieldChars = 2000

// injectionPatterns are known prompt-injection phrasings and fake role
// markers. Matches are replaced, never passed through to the prompt.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior)\s+instructions`),
	regexp.MustCompile(`(?im)^\s*(system|assistant|user)\s*:`),
	regexp.MustCompile(`<\|im_start\|>|<\|im_end\|>`),
	regexp.MustCompile(`(?i)\[/?INST\]`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\s`),
}

// sanitize neutralizes prompt-injection patterns, escapes markdown control
// sequences, and truncates to maxFieldChars.
func sanitize(s string) string {
	for _, p := range injectionPatterns {
		s = p.ReplaceAllString(s, "[filtered]")
	}

	// keep embedded content from opening code fences or headings of its own
	s = strings.ReplaceAll(s, "```", "\\`\\`\\`")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			lines[i] = "\\" + strings.TrimLeft(line, " ")
		}
	}
	s = strings.Join(lines, "\n")

	return truncateBytes(s, maxFieldChars)
}

// truncateBytes cuts s to at most max bytes without splitting a rune.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
