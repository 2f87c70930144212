package report

import (
	"math"
	"strings"
)

// Default progress bar decorations.
const (
	BarFill  = "="
	BarEmpty = " "
	BarPre   = "["
	BarPost  = "]"
)

// repeat returns the first n runes of glyph repeated.
func repeat(glyph string, n int) []rune {
	runes := []rune(glyph)
	if n <= 0 || len(runes) == 0 {
		return nil
	}

	return []rune(strings.Repeat(glyph, n/len(runes)+1))[:n]
}

// ProgressBar renders a text bar of size characters between pre and post,
// filled proportionally to factor. Factors above 1 are clamped to 1.
func ProgressBar(factor float64, size int, fill, empty, pre, post string) string {
	factor = min(factor, 1.0)

	filled := int(math.RoundToEven(factor * float64(size)))
	filled = max(0, min(filled, size))

	var b strings.Builder

	b.WriteString(pre)
	b.WriteString(string(repeat(fill, filled)))

	if rest := repeat(empty, size); len(rest) > filled {
		b.WriteString(string(rest[filled:]))
	}

	b.WriteString(post)

	return b.String()
}
