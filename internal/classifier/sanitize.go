package classifier

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxComponentBytes is the longest path component most filesystems accept.
const MaxComponentBytes = 255

// Sanitize removes characters that are illegal on common filesystems,
// collapses runs of spaces and trims leading and trailing dots and spaces.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
		case unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r):
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.Trim(b.String(), " .")
}

// FitComponent returns title+suffix, shortening title at a rune boundary so
// the result is at most MaxComponentBytes. The suffix is never cut.
func FitComponent(title, suffix string) string {
	budget := MaxComponentBytes - len(suffix)
	if budget < 0 {
		budget = 0
	}
	if len(title) > budget {
		cut := budget
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = strings.TrimRight(title[:cut], " .")
	}
	return title + suffix
}

// Render applies a join convention to a display title. Dotted joins words
// with dots; anything else keeps the spaces.
func Render(title string, dotted bool) string {
	if !dotted {
		return title
	}
	return strings.Join(strings.Fields(title), ".")
}
