package validators

import (
	"strings"
	"unicode"
)

// SanitizeString collapses whitespace runs, drops control characters and
// truncates to maxLen runes so multi-byte names are never split.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	runes, pendingSpace := 0, false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = runes > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		need := 1
		if pendingSpace {
			need = 2
		}
		if maxLen > 0 && runes+need > maxLen {
			break
		}
		if pendingSpace {
			b.WriteByte(' ')
			runes++
			pendingSpace = false
		}
		b.WriteRune(r)
		runes++
	}
	return b.String()
}
