package fuzz

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Ratio returns the indel similarity of a and b in [0, 100]: the fraction of
// both strings covered by their longest common subsequence. Two empty
// strings are identical (100); one empty string scores 0.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	if a == b {
		return 100
	}

	lcs := edlib.LCS(a, b)
	return 200 * float64(lcs) / float64(la+lb)
}

// PartialRatio returns the best Ratio between the shorter string and any
// equally long window of the longer string. It rewards a query that appears
// embedded inside a longer description.
func PartialRatio(a, b string) float64 {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 100
		}
		return 0
	}
	if len(shorter) == len(longer) {
		return Ratio(string(shorter), string(longer))
	}

	s := string(shorter)
	best := 0.0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		window := string(longer[start : start+len(shorter)])
		if score := Ratio(s, window); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio tokenizes both strings, sorts the tokens and compares the
// rejoined strings with Ratio. Word order does not affect the score.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the token sets of both strings: the common tokens,
// plus each side's remainder, are rejoined and the best pairwise Ratio wins.
// Duplicate and reordered tokens do not affect the score.
func TokenSetRatio(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)

	var common, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	combinedA := joinNonEmpty(base, strings.Join(onlyA, " "))
	combinedB := joinNonEmpty(base, strings.Join(onlyB, " "))

	best := Ratio(base, combinedA)
	if score := Ratio(base, combinedB); score > best {
		best = score
	}
	if score := Ratio(combinedA, combinedB); score > best {
		best = score
	}
	return best
}

// MaxRatio returns the maximum of all four similarity measures, the signal
// used for training-boost computation.
func MaxRatio(a, b string) float64 {
	best := Ratio(a, b)
	if score := PartialRatio(a, b); score > best {
		best = score
	}
	if score := TokenSortRatio(a, b); score > best {
		best = score
	}
	if score := TokenSetRatio(a, b); score > best {
		best = score
	}
	return best
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
