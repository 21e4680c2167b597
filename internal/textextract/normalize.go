package textextract

import (
	"regexp"
	"strings"
)

var (
	reCRLF     = regexp.MustCompile(`\r\n?`)
	rePageFeed = regexp.MustCompile(`\f`)
)

// Normalize converts line endings to LF and page breaks to plain newlines.
// Spacing inside lines is left alone; field patterns do their own trimming.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = rePageFeed.ReplaceAllString(s, "\n")
	return strings.ReplaceAll(s, "\x00", "")
}
