// Package similarity scores how alike two names are on a 0-1 scale using the
// Dice coefficient over deduplicated adjacent-character bigrams. It is the
// fuzzy half of reconciliation: auto-matching only ever uses exact joins,
// while duplicate detection ranks candidates with this scorer for a human to
// review.
package similarity

import (
	"strings"
	"unicode/utf8"
)

// Score returns a similarity in [0,1] between a and b. Comparison is
// case-insensitive and ignores surrounding whitespace. Strings shorter than
// two characters cannot form a bigram and score 0 unless they are equal.
func Score(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if utf8.RuneCountInString(a) < 2 || utf8.RuneCountInString(b) < 2 {
		return 0
	}

	bigramsA := bigrams(a)
	bigramsB := bigrams(b)

	common := 0
	for bg := range bigramsA {
		if _, ok := bigramsB[bg]; ok {
			common++
		}
	}

	return 2 * float64(common) / float64(len(bigramsA)+len(bigramsB))
}

func bigrams(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{}, len(runes))
	for i := 0; i < len(runes)-1; i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}
