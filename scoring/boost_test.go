package scoring

import (
	"testing"

	"github.com/poiesic/prodmatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainingBoostExactQuery(t *testing.T) {
	examples := []core.TrainingExample{
		{CustomerQuery: "ACB 4P 800A 65KA", OrderCode: "1SDA072894R1", Description: "Air circuit breaker"},
	}

	boosts := trainingBoost("ACB 4P 800A 65KA", examples)
	require.Contains(t, boosts, "1SDA072894R1")
	// Similarity 1.0 maps to the boost ceiling.
	assert.InDelta(t, boostCeil, boosts["1SDA072894R1"], 1e-9)
}

func TestTrainingBoostBelowThresholdAbsent(t *testing.T) {
	examples := []core.TrainingExample{
		{CustomerQuery: "surge arrester type 2", OrderCode: "OVR-T2", Description: "Surge arrester"},
	}

	boosts := trainingBoost("totally unrelated widget", examples)
	assert.NotContains(t, boosts, "OVR-T2")
}

func TestTrainingBoostKeepsMaxPerCode(t *testing.T) {
	examples := []core.TrainingExample{
		{CustomerQuery: "acb 800a", OrderCode: "1SDA072894R1", Description: "ACB"},
		{CustomerQuery: "air circuit breaker 800a", OrderCode: "1SDA072894R1", Description: "ACB"},
	}

	query := "acb 800a"
	boosts := trainingBoost(query, examples)
	require.Contains(t, boosts, "1SDA072894R1")

	// The exact-matching example dominates the weaker one.
	assert.InDelta(t, boostCeil, boosts["1SDA072894R1"], 1e-9)
}

func TestTrainingBoostMonotonicInSimilarity(t *testing.T) {
	// Queries progressively further from the training query earn
	// non-increasing boosts until they drop below the threshold.
	examples := []core.TrainingExample{
		{CustomerQuery: "air circuit breaker 4 pole 800a", OrderCode: "X", Description: "ACB"},
	}

	exact := trainingBoost("air circuit breaker 4 pole 800a", examples)["X"]
	near := trainingBoost("air circuit breaker 4 pole", examples)["X"]

	assert.InDelta(t, boostCeil, exact, 1e-9)
	if near > 0 {
		assert.LessOrEqual(t, near, exact)
		assert.GreaterOrEqual(t, near, boostFloor)
	}
}

func TestTrainingBoostEmptyExamples(t *testing.T) {
	boosts := trainingBoost("anything", nil)
	assert.Empty(t, boosts)
}
