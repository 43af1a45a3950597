package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var multiSpaceRegex = regexp.MustCompile(`\s+`)

// Key normalizes a business-key string (fighter name, event name) for
// cache lookups and case-insensitive matching. Stored values keep their
// original casing and diacritics; only the lookup key is folded.
func Key(name string) string {
	name = strings.ReplaceAll(name, " ", " ")
	name = multiSpaceRegex.ReplaceAllString(name, " ")
	return strings.ToLower(strings.TrimSpace(name))
}

// Letters that NFD leaves intact but that profile slugs fold to ASCII.
var slugFold = map[rune]string{
	'ł': "l",
	'ø': "o",
	'đ': "d",
	'æ': "ae",
	'œ': "oe",
	'ß': "ss",
}

// Slug converts a fighter name to the URL slug used by athlete profile
// pages: lowercase, diacritics folded to ASCII, spaces to hyphens,
// punctuation dropped.
func Slug(name string) string {
	key := norm.NFD.String(Key(name))
	var b strings.Builder
	for _, r := range key {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if fold, ok := slugFold[r]; ok {
			b.WriteString(fold)
			continue
		}
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
