package e2e

import (
	"strings"
	"unicode"
)

const maxNameLength = 30

// SanitizeName turns a scenario or step name into something safe for a
// directory or file name. Letters, digits, '_' and '-' are kept, whitespace
// becomes '_' and everything else is dropped. The result is at most 30 runes.
func SanitizeName(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n == maxNameLength {
			break
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		default:
			continue
		}
		n++
	}
	return b.String()
}
