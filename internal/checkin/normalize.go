// Package checkin builds search keys for attendee names.
package checkin

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// table covers the Basic Multilingual Plane; it is filled once and only read afterwards.
var table = buildTable()

func buildTable() []string {
	t := make([]string, 0x10000)
	for i := range t {
		r := rune(i)
		if r >= 0xD800 && r <= 0xDFFF {
			t[i] = string(utf8.RuneError)
			continue
		}
		folded := width.Fold.String(string(r))
		t[i] = strings.Map(unicode.ToLower, folded)
	}
	t['ı'] = "i"
	t['Σ'] = "σ"
	t['ς'] = "σ"
	return t
}

// Normalize lower-cases s and folds full-width forms so that names typed on
// different keyboards compare equal.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if int(r) < len(table) {
			b.WriteString(table[r])
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
