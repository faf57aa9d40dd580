package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_FitsVocabularyAndRows(t *testing.T) {
	queries := []string{
		"ACB 4P 800A 65KA",
		"contactor 400A coil",
		"circuit breaker 100A",
	}

	idx := Build(queries)

	assert.Equal(t, len(queries), idx.Rows())
	assert.Greater(t, idx.VocabularySize(), 0)

	// Every fitted row is L2-normalised.
	for i := 0; i < idx.Rows(); i++ {
		assert.InDelta(t, 1.0, idx.Row(i).Norm(), 1e-9, "row %d should have unit norm", i)
	}
}

func TestBuild_EmptyCorpusStaysQueryable(t *testing.T) {
	idx := Build(nil)

	assert.Equal(t, 0, idx.Rows())
	assert.Greater(t, idx.VocabularySize(), 0, "placeholder fit should produce a vocabulary")

	// Vectorizing must not panic and OOV text yields a zero vector.
	vec := idx.Vectorize("anything at all")
	assert.NotNil(t, vec)
}

func TestBuild_NgramsIncludeBigrams(t *testing.T) {
	idx := Build([]string{"circuit breaker"})

	assert.Contains(t, idx.Terms(), "circuit")
	assert.Contains(t, idx.Terms(), "breaker")
	assert.Contains(t, idx.Terms(), "circuit breaker")
}

func TestBuild_StopWordsRemoved(t *testing.T) {
	idx := Build([]string{"breaker for the panel"})

	assert.NotContains(t, idx.Terms(), "for")
	assert.NotContains(t, idx.Terms(), "the")
	assert.Contains(t, idx.Terms(), "breaker")
	assert.Contains(t, idx.Terms(), "panel")
	// Bigrams are formed after stop-word removal.
	assert.Contains(t, idx.Terms(), "breaker panel")
}

func TestBuild_MaxFeaturesCapsVocabulary(t *testing.T) {
	queries := []string{
		"alpha beta gamma delta",
		"epsilon zeta eta theta",
		"iota kappa lambda mu",
	}

	idx := Build(queries, WithMaxFeatures(5))
	assert.Equal(t, 5, idx.VocabularySize())
}

func TestVectorize_OutOfVocabularyContributesZero(t *testing.T) {
	idx := Build([]string{"circuit breaker 100a"})

	vec := idx.Vectorize("completely unrelated words")
	assert.Empty(t, vec)
	assert.Zero(t, vec.Norm())
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	idx := Build([]string{
		"ACB 4P 800A 65KA",
		"contactor 400A",
	})

	for i := 0; i < idx.Rows(); i++ {
		row := idx.Row(i)
		require.NotEmpty(t, row)
		assert.InDelta(t, 1.0, CosineSimilarity(row, row), 1e-9)
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	idx := Build([]string{"circuit breaker"})

	zero := SparseVector{}
	assert.Zero(t, CosineSimilarity(zero, idx.Row(0)))
	assert.Zero(t, CosineSimilarity(idx.Row(0), zero))
	assert.Zero(t, CosineSimilarity(zero, zero))
}

func TestCosineSimilarity_Ordering(t *testing.T) {
	queries := []string{
		"air circuit breaker 800a",
		"contactor coil 24v",
	}
	idx := Build(queries)

	probe := idx.Vectorize("circuit breaker 800a")
	sims := idx.RowSimilarities(probe)
	require.Len(t, sims, 2)
	assert.Greater(t, sims[0], sims[1],
		"probe should be closer to the breaker query than the contactor query")
}

func TestBuild_RebuildIsIdempotent(t *testing.T) {
	queries := []string{
		"ACB 4P 800A 65KA",
		"contactor 400A coil",
		"circuit breaker 100A",
	}

	a := Build(queries)
	b := Build(queries)

	probe := "circuit breaker 800a"
	va, vb := a.Vectorize(probe), b.Vectorize(probe)
	require.Equal(t, len(va), len(vb))
	for col, w := range va {
		assert.InDelta(t, w, vb[col], 1e-12)
	}
	assert.Equal(t, a.Terms(), b.Terms())
}

func TestRestore_RoundTrip(t *testing.T) {
	original := Build([]string{"ACB 4P 800A", "contactor 400A"})

	rows := make([]SparseVector, original.Rows())
	for i := range rows {
		rows[i] = original.Row(i)
	}
	restored := Restore(original.Terms(), original.IDF(), rows)

	probe := "acb 800a"
	vo, vr := original.Vectorize(probe), restored.Vectorize(probe)
	require.Equal(t, len(vo), len(vr))
	for col, w := range vo {
		assert.InDelta(t, w, vr[col], 1e-12)
	}
}
