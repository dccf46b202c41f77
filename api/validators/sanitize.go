package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, collapses internal whitespace runs to one
// space, drops control characters and truncates to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	space := false
	runes := 0
	for _, r := range strings.TrimSpace(input) {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if maxLen > 0 && runes >= maxLen {
			break
		}
		if space {
			if maxLen > 0 && runes+1 >= maxLen {
				break
			}
			b.WriteByte(' ')
			runes++
			space = false
		}
		b.WriteRune(r)
		runes++
	}
	return b.String()
}
