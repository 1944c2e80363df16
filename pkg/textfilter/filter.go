// Package textfilter renders conversation text for display.
package textfilter

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

type ligature struct {
	latin string
	runic string
}

// Ligatures are written as a single rune and win over single letters.
var ligatures = []ligature{
	{"th", "ᚦ"},
	{"ng", "ᛝ"},
	{"ea", "ᛠ"},
	{"ee", "ᛟ"},
	{"st", "ᛥ"},
}

var letters = map[rune]string{
	'a': "ᚪ", 'b': "ᛒ", 'c': "ᚳ", 'd': "ᛞ", 'e': "ᛖ", 'f': "ᚠ",
	'g': "ᚷ", 'h': "ᚻ", 'i': "ᛁ", 'j': "ᛄ", 'k': "ᚳ", 'l': "ᛚ",
	'm': "ᛗ", 'n': "ᚾ", 'o': "ᚩ", 'p': "ᛈ", 'q': "ᚳᚹ", 'r': "ᚱ",
	's': "ᛋ", 't': "ᛏ", 'u': "ᚢ", 'v': "ᚢ", 'w': "ᚹ", 'x': "ᛉ",
	'y': "ᚣ", 'z': "ᛋ",
}

// ToRunes transliterates Latin letters to Britannian runes. Runic script
// has no case; anything that is not a letter is copied through.
func ToRunes(s string) string {
	folded := cases.Fold().String(s)
	var b strings.Builder
	b.Grow(len(folded) * 3)

outer:
	for i := 0; i < len(folded); {
		for _, lig := range ligatures {
			if strings.HasPrefix(folded[i:], lig.latin) {
				b.WriteString(lig.runic)
				i += len(lig.latin)
				continue outer
			}
		}
		r, size := utf8.DecodeRuneInString(folded[i:])
		if runic, ok := letters[r]; ok {
			b.WriteString(runic)
		} else {
			b.WriteString(folded[i : i+size])
		}
		i += size
	}
	return b.String()
}

// IsRunic reports whether s contains any character from the Runic block.
func IsRunic(s string) bool {
	for _, r := range s {
		if r >= 0x16A0 && r <= 0x16FF {
			return true
		}
	}
	return false
}
