// Package tokenizer provides text normalisation for the index builder.
// It drops everything except ASCII letters and whitespace, lower-cases the
// remainder, and splits it into a token sequence.
package tokenizer

import (
	"strings"
	"unicode"
)

// Normalize turns raw text into the token sequence the index is built from.
// The position of a token is its offset in the returned slice.
func Normalize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case unicode.IsSpace(r), r >= 0x1c && r <= 0x1f:
			// file, group, record and unit separators split words too
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}
