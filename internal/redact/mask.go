package redact

import (
	"strings"
	"unicode/utf8"
)

// BlockGlyph replaces every redacted character.
const BlockGlyph = '█'

// Mask returns text with the characters in [start, end) replaced by
// BlockGlyph. Offsets count Unicode code points, so the result always has
// as many characters as text. Offsets outside the text are clamped.
func Mask(text string, start, end int) string {
	n := utf8.RuneCountInString(text)
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	if start == end {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text) + (end-start)*(utf8.RuneLen(BlockGlyph)-1))

	i := 0
	for _, r := range text {
		if i >= start && i < end {
			sb.WriteRune(BlockGlyph)
		} else {
			sb.WriteRune(r)
		}
		i++
	}
	return sb.String()
}
