package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// strayControls drops control characters that are not whitespace. OCR output
// regularly contains NULs and form separators that would otherwise survive
// into ingredient names.
var strayControls = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) && !unicode.IsSpace(r)
}))

// Normalize replaces every run of whitespace with a single space and lower-cases
// the text.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	if cleaned, _, err := transform.String(strayControls, s); err == nil {
		s = cleaned
	}

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}

	return strings.ToLower(b.String())
}
