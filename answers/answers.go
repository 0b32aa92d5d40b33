// Package answers compares free-text guesses against stored targets.
package answers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var spaceLike = strings.NewReplacer(
	"\u00A0", " ",
	"\u202F", " ",
	"\u2013", " ",
	"\u2014", " ",
	"-", " ",
	"\u2019", "'",
	"`", "'",
)

// Normalize lower-cases s, strips accents and collapses punctuation-like separators and runs of
// whitespace to a single space.
func Normalize(s string) string {
	s = spaceLike.Replace(strings.TrimSpace(s))
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Match reports whether guess names target. A blank guess never matches.
func Match(guess, target string) bool {
	g := Normalize(guess)
	return g != "" && g == Normalize(target)
}
