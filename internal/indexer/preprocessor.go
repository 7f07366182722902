package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes text for embedding: trim, collapse whitespace and
// cut to at most maxRunes runes at a word boundary when possible. maxRunes <= 0
// disables the cut.
func Preprocess(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	n := 0
	lastSpace := -1
	for _, r := range text {
		if maxRunes > 0 && n == maxRunes {
			out := b.String()
			if lastSpace > 0 && !unicode.IsSpace(r) {
				out = out[:lastSpace]
			}
			return strings.TrimRight(out, " ")
		}
		if unicode.IsSpace(r) {
			if wasSpace {
				continue
			}
			lastSpace = b.Len()
			r = ' '
			wasSpace = true
		} else {
			wasSpace = false
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
