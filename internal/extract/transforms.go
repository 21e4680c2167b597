package extract

import (
	"regexp"
	"strings"
)

// Transform names a post-processing step applied to a captured value.
type Transform string

const (
	Trim               Transform = "trim"
	CollapseWhitespace Transform = "collapse_whitespace"
	StripWhitespace    Transform = "strip_whitespace"
	TruncateAtSymbol   Transform = "truncate_at_symbol"
	NotesSentinel      Transform = "notes_sentinel"
)

// NotesAbsent is stored in Notes when the section exists but is blank or
// runs straight into the date line.
const NotesAbsent = "null"

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reSymbol     = regexp.MustCompile(`[^A-Za-z0-9 ]`)
)

var transforms = map[Transform]func(string) string{
	Trim:               strings.TrimSpace,
	CollapseWhitespace: collapseWhitespace,
	StripWhitespace:    stripWhitespace,
	TruncateAtSymbol:   truncateAtSymbol,
	NotesSentinel:      notesSentinel,
}

// TransformNames lists the valid transform names.
func TransformNames() []string {
	return []string{
		string(Trim),
		string(CollapseWhitespace),
		string(StripWhitespace),
		string(TruncateAtSymbol),
		string(NotesSentinel),
	}
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// truncateAtSymbol keeps the leading run of ASCII letters, digits and spaces.
func truncateAtSymbol(s string) string {
	if loc := reSymbol.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.TrimSpace(s)
}

func notesSentinel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "Ngày") {
		return NotesAbsent
	}
	return collapseWhitespace(s)
}
