// Package normalize provides the text-canonicalization rules shared by the
// matcher, the learning engine, the persistence gateway, and the sweeper.
// All functions are pure and total: any string in, a canonical string out.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// unitTokens is the fixed vocabulary of quantity/unit words stripped by
// DeriveKey so that "Mleko 1l" and "Mleko 500ml" share one key. Matching is
// case-insensitive and token-adjacent digits are removed along with the unit.
var unitTokens = []string{
	"kg", "dag", "dkg", "g", "gram", "gramy", "gramów",
	"mg", "ml", "l", "litr", "litry", "litrów",
	"szt", "sztuk", "sztuka", "sztuki",
	"opak", "opakowanie", "opakowania",
	"pcs", "pc", "pack", "packs", "piece", "pieces",
	"oz", "lb", "lbs",
}

var (
	unitPattern       = buildUnitPattern()
	percentPattern    = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`)
	multiplierPattern = regexp.MustCompile(`(?i)\b\d+\s*x\b|\bx\s*\d+\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

func buildUnitPattern() *regexp.Regexp {
	// Longer tokens first so "ml" wins over "l" inside the alternation.
	escaped := make([]string, len(unitTokens))
	for i, tok := range unitTokens {
		escaped[i] = regexp.QuoteMeta(tok)
	}
	sort.Slice(escaped, func(i, j int) bool { return len(escaped[i]) > len(escaped[j]) })
	alt := strings.Join(escaped, "|")
	// A unit token with an optional adjacent numeric value on either side,
	// e.g. "1l", "1 l", "500ml", "l 500". Word-bounded so "mleko" survives.
	return regexp.MustCompile(`(?i)\b(?:\d+(?:[.,]\d+)?\s*(?:` + alt + `)|(?:` + alt + `)\s*\d+(?:[.,]\d+)?|(?:` + alt + `))\b`)
}

// Canonicalize lowercases text, strips digits and every character that is
// not a letter or whitespace (accented letters survive), collapses runs of
// whitespace, and trims. Idempotent.
func Canonicalize(text string) string {
	if text == "" {
		return ""
	}

	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(b.String(), " "))
}

// DeriveKey computes the dataset's canonical key for text: quantity/unit
// tokens and their adjacent numeric values are removed first, then the
// remainder is canonicalized. Idempotent.
func DeriveKey(text string) string {
	if text == "" {
		return ""
	}

	stripped := percentPattern.ReplaceAllString(text, " ")
	stripped = multiplierPattern.ReplaceAllString(stripped, " ")
	stripped = unitPattern.ReplaceAllString(stripped, " ")

	return Canonicalize(stripped)
}
