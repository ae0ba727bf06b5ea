package transcribe

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CollapseWhitespace reduces every whitespace run to a single space and
// trims the ends. Applied to provider output before the quality gate so
// the repetition heuristics see a stable token stream.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// NormalizeTranscript collapses whitespace and drops the spurious
// single space the models tend to insert between adjacent CJK
// characters at segment boundaries.
func NormalizeTranscript(s string) string {
	collapsed := CollapseWhitespace(s)
	runes := []rune(collapsed)

	var b strings.Builder
	b.Grow(len(collapsed))
	for i, r := range runes {
		if r == ' ' && i > 0 && i < len(runes)-1 && isCJK(runes[i-1]) && isCJK(runes[i+1]) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isCJK(r rune) bool {
	if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
		return true
	}
	// CJK punctuation and full-width forms.
	return (r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF)
}
