// Package slug turns free text into URL and object-key safe identifiers.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Make lowercases s, drops accents, and joins runs of letters and digits
// with single dashes. The result is truncated to maxLen runes (0 = no limit)
// without leaving a trailing dash. An empty result becomes fallback.
func Make(s string, maxLen int, fallback string) string {
	var b strings.Builder
	dash := false
	n := 0
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		r = unicode.ToLower(r)
		isWord := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isWord {
			dash = b.Len() > 0
			continue
		}
		if maxLen > 0 && n >= maxLen {
			break
		}
		if dash {
			if maxLen > 0 && n+1 >= maxLen {
				break
			}
			b.WriteByte('-')
			n++
			dash = false
		}
		b.WriteRune(r)
		n++
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
