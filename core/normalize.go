package core

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes free text for comparison: lower-cases, replaces
// every character that is not a letter, digit or whitespace with a space,
// collapses runs of whitespace and trims. It is total; any input (including
// the empty string) produces a valid result.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		default:
			// Punctuation, separators and control characters all become
			// spaces so Fields can collapse them below.
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens normalizes text and splits it into whitespace-separated tokens.
func Tokens(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// TokenSet normalizes text and returns the set of distinct tokens.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
