package text

import (
	"regexp"
	"strings"

	"labelscan/pkg/models"
)

var (
	// ingredientsSection captures the shortest span after an "ingredient(s)"
	// header up to the first terminator keyword, a "**" marker or end of text.
	ingredientsSection = regexp.MustCompile(
		`(?i)ingredients?[:\-]?\s*(.*?)(?:\s*(?:batch|mfg|exp|how to use|precautions|\*\*|$))`,
	)

	// ocrNoise matches any single character that is not part of an ingredient
	// name or a list delimiter.
	ocrNoise = regexp.MustCompile(`[^a-zA-Z0-9(),\s.\-]`)
)

// Extract normalizes raw label text and returns the ingredient names listed
// after its ingredients header. It returns an empty slice when no header is
// present.
func Extract(raw string) []string {
	section, ok := Section(Normalize(raw))
	if !ok {
		return []string{}
	}
	return SplitTopLevel(ocrNoise.ReplaceAllString(section, " "))
}

// Section returns the raw ingredients span of normalized text.
func Section(normalized string) (string, bool) {
	m := ingredientsSection.FindStringSubmatch(normalized)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SplitTopLevel splits s on commas that are not inside parentheses. Segments
// are trimmed and empty ones dropped.
//
// The depth counter is not clamped: a stray ')' drives it negative and the
// commas that follow are kept inside the current segment until a matching
// '(' brings it back to zero.
func SplitTopLevel(s string) []string {
	segments := []string{}
	var current strings.Builder
	depth := 0

	flush := func() {
		if seg := strings.TrimSpace(current.String()); seg != "" {
			segments = append(segments, seg)
		}
		current.Reset()
	}

	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}

		if r == ',' && depth == 0 {
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return segments
}

// Ingredients extracts the ingredient list of raw and tags every entry with
// its position.
func Ingredients(raw string) []models.ExtractedIngredient {
	names := Extract(raw)
	out := make([]models.ExtractedIngredient, len(names))
	for i, name := range names {
		out[i] = models.ExtractedIngredient{RawText: name, Position: i}
	}
	return out
}
