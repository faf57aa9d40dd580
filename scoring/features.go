package scoring

import (
	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/fuzz"
)

// FeatureCount is the fixed dimensionality of extracted feature vectors.
const FeatureCount = 11

// ExtractFeatures derives the feature vector for a (query, candidate
// description, candidate code) triple. All three inputs are normalized
// first; the function is total and deterministic.
//
// Layout: four fuzzy scores against the description, three against the
// code, the query/description length ratio, then three word-overlap
// fractions. Fuzzy scores are normalized to [0,1].
func ExtractFeatures(query, description, code string) []float64 {
	queryClean := core.Normalize(query)
	descClean := core.Normalize(description)
	codeClean := core.Normalize(code)

	features := make([]float64, 0, FeatureCount)

	features = append(features,
		fuzz.Ratio(queryClean, descClean)/100.0,
		fuzz.PartialRatio(queryClean, descClean)/100.0,
		fuzz.TokenSortRatio(queryClean, descClean)/100.0,
		fuzz.TokenSetRatio(queryClean, descClean)/100.0,
	)

	features = append(features,
		fuzz.Ratio(queryClean, codeClean)/100.0,
		fuzz.PartialRatio(queryClean, codeClean)/100.0,
		fuzz.TokenSortRatio(queryClean, codeClean)/100.0,
	)

	if len(descClean) > 0 {
		features = append(features, float64(len(queryClean))/float64(len(descClean)))
	} else {
		features = append(features, 0.0)
	}

	queryWords := core.TokenSet(queryClean)
	descWords := core.TokenSet(descClean)
	codeWords := core.TokenSet(codeClean)

	features = append(features,
		overlapFraction(queryWords, descWords, len(descWords)),
		overlapFraction(queryWords, descWords, len(queryWords)),
		overlapFraction(queryWords, codeWords, len(codeWords)),
	)

	return features
}

// overlapFraction returns |a ∩ b| / denom, or 0 when denom is 0.
func overlapFraction(a, b map[string]struct{}, denom int) float64 {
	if denom == 0 {
		return 0.0
	}
	common := 0
	for word := range a {
		if _, ok := b[word]; ok {
			common++
		}
	}
	return float64(common) / float64(denom)
}
