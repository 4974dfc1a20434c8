package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanText normalizes raw engine output to NFC, drops characters outside
// whitelist, collapses runs of blanks and removes empty lines. An empty
// whitelist keeps every printable character.
func CleanText(s, whitelist string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		filtered := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			if !unicode.IsPrint(r) {
				return -1
			}
			if whitelist != "" && !strings.ContainsRune(whitelist, r) {
				return -1
			}
			return r
		}, line)
		if f := strings.Fields(filtered); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return strings.Join(out, "\n")
}
