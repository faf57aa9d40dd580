package scoring

import (
	"context"
	"testing"

	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/storage"
	"github.com/poiesic/prodmatch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) (storage.TrainingRepository, storage.CatalogRepository, storage.ModelRepository) {
	t.Helper()
	trainingRepo, catalogRepo, modelRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		trainingRepo.Close()
		backend.Close()
	})
	return trainingRepo, catalogRepo, modelRepo
}

func seedTrainingData(t *testing.T, repo storage.TrainingRepository) {
	t.Helper()
	examples := []*core.TrainingExample{
		{CustomerQuery: "ACB 4P 800A 65KA", OrderCode: "1SDA072894R1", Description: "Air circuit breaker 4-pole 800A 65kA"},
		{CustomerQuery: "contactor 9A 3 pole", OrderCode: "AF09-30-10", Description: "Contactor AF09 3-pole 9A"},
		{CustomerQuery: "mini breaker C16", OrderCode: "S201-C16", Description: "Miniature circuit breaker S201 C16"},
		{CustomerQuery: "surge arrester type 2 40kA", OrderCode: "OVR-T2", Description: "Surge arrester OVR type 2 40kA"},
		{CustomerQuery: "residual current device 40A", OrderCode: "F204-40", Description: "RCCB F204 4-pole 40A 30mA"},
	}
	_, err := repo.Add(context.Background(), examples...)
	require.NoError(t, err)
}

func seedCatalog(t *testing.T, repo storage.CatalogRepository) {
	t.Helper()
	entries := []core.CatalogEntry{
		{OrderCode: "1SDA072894R1", Description: "Air circuit breaker 4-pole 800A 65kA"},
		{OrderCode: "AF09-30-10", Description: "Contactor AF09 3-pole 9A"},
		{OrderCode: "S201-C16", Description: "Miniature circuit breaker S201 C16"},
		{OrderCode: "OVR-T2", Description: "Surge arrester OVR type 2 40kA"},
		{OrderCode: "F204-40", Description: "RCCB F204 4-pole 40A 30mA"},
		{OrderCode: "TMAX-XT1", Description: "Molded case circuit breaker XT1 160A"},
	}
	require.NoError(t, repo.Replace(context.Background(), entries))
}

func TestNewScorer(t *testing.T) {
	trainingRepo, catalogRepo, _ := newTestRepos(t)

	t.Run("valid configuration", func(t *testing.T) {
		scorer, err := NewScorer(trainingRepo, catalogRepo)
		require.NoError(t, err)
		assert.NotNil(t, scorer)
		scorer.Release()
	})

	t.Run("nil training repository", func(t *testing.T) {
		_, err := NewScorer(nil, catalogRepo)
		assert.Equal(t, ErrTrainingRepositoryRequired, err)
	})

	t.Run("with options", func(t *testing.T) {
		scorer, err := NewScorer(trainingRepo, catalogRepo,
			WithSeed(7), WithTreeCount(10), WithPoolSize(2), WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, scorer)
		scorer.Release()
	})
}

func TestScorerNotTrained(t *testing.T) {
	trainingRepo, catalogRepo, _ := newTestRepos(t)

	scorer, err := NewScorer(trainingRepo, catalogRepo)
	require.NoError(t, err)
	defer scorer.Release()

	_, err = scorer.PredictProbability("acb 800a", "Air circuit breaker", "1SDA072894R1")
	assert.ErrorIs(t, err, ErrNotTrained)

	_, err = scorer.Search("acb 800a", 5)
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestScorerTrainEmpty(t *testing.T) {
	trainingRepo, catalogRepo, _ := newTestRepos(t)

	scorer, err := NewScorer(trainingRepo, catalogRepo)
	require.NoError(t, err)
	defer scorer.Release()

	_, err = scorer.Train(context.Background())
	assert.ErrorIs(t, err, ErrNoTrainingData)
}

func TestScorerTrainAndPredict(t *testing.T) {
	trainingRepo, catalogRepo, _ := newTestRepos(t)
	seedTrainingData(t, trainingRepo)
	seedCatalog(t, catalogRepo)

	scorer, err := NewScorer(trainingRepo, catalogRepo, WithTreeCount(20))
	require.NoError(t, err)
	defer scorer.Release()

	report, err := scorer.Train(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Positives)
	assert.Greater(t, report.Negatives, 0)
	assert.Equal(t, report.Positives+report.Negatives, report.Samples)

	tests := []struct {
		name                     string
		query, description, code string
	}{
		{"training pair", "ACB 4P 800A 65KA", "Air circuit breaker 4-pole 800A 65kA", "1SDA072894R1"},
		{"mismatch", "contactor 9A", "Surge arrester OVR type 2 40kA", "OVR-T2"},
		{"empty strings", "", "", ""},
		{"unseen text", "frequency converter 11kW", "ACS580 drive 11kW", "ACS580-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prob, err := scorer.PredictProbability(tt.query, tt.description, tt.code)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, prob, 0.0)
			assert.LessOrEqual(t, prob, 1.0)
		})
	}
}

func TestScorerSearch(t *testing.T) {
	trainingRepo, catalogRepo, _ := newTestRepos(t)
	seedTrainingData(t, trainingRepo)
	seedCatalog(t, catalogRepo)

	scorer, err := NewScorer(trainingRepo, catalogRepo, WithTreeCount(20))
	require.NoError(t, err)
	defer scorer.Release()

	_, err = scorer.Train(context.Background())
	require.NoError(t, err)

	results, err := scorer.Search("ACB 4P 800A 65KA", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 3)

	// The boosted training match outranks everything else.
	assert.Equal(t, "1SDA072894R1", results[0].OrderCode)
	assert.True(t, results[0].TrainingBoosted)

	// Probabilities are within bounds and sorted descending.
	last := 1.1
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Probability, 0.0)
		assert.LessOrEqual(t, r.Probability, 1.0)
		assert.LessOrEqual(t, r.Probability, last)
		last = r.Probability
	}
}

func TestScorerSearchDegenerateArguments(t *testing.T) {
	trainingRepo, catalogRepo, _ := newTestRepos(t)
	seedTrainingData(t, trainingRepo)
	seedCatalog(t, catalogRepo)

	scorer, err := NewScorer(trainingRepo, catalogRepo, WithTreeCount(10))
	require.NoError(t, err)
	defer scorer.Release()

	_, err = scorer.Train(context.Background())
	require.NoError(t, err)

	results, err := scorer.Search("acb", 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = scorer.Search("   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScorerTrainWithoutCatalogFallsBack(t *testing.T) {
	trainingRepo, catalogRepo, _ := newTestRepos(t)
	seedTrainingData(t, trainingRepo)
	// Catalog intentionally left empty.

	scorer, err := NewScorer(trainingRepo, catalogRepo, WithTreeCount(10))
	require.NoError(t, err)
	defer scorer.Release()

	_, err = scorer.Train(context.Background())
	require.NoError(t, err)

	// Searchable against the training-derived catalog.
	results, err := scorer.Search("contactor 9A 3 pole", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "AF09-30-10", results[0].OrderCode)
}

func TestScorerSaveLoad(t *testing.T) {
	trainingRepo, catalogRepo, modelRepo := newTestRepos(t)
	seedTrainingData(t, trainingRepo)
	seedCatalog(t, catalogRepo)

	scorer, err := NewScorer(trainingRepo, catalogRepo,
		WithTreeCount(10), WithModelRepository(modelRepo))
	require.NoError(t, err)
	defer scorer.Release()

	_, err = scorer.Train(context.Background())
	require.NoError(t, err)
	require.NoError(t, scorer.Save(context.Background()))

	restored, err := NewScorer(trainingRepo, catalogRepo, WithModelRepository(modelRepo))
	require.NoError(t, err)
	defer restored.Release()

	require.NoError(t, restored.Load(context.Background()))

	query := "mini breaker C16"
	wantProb, err := scorer.PredictProbability(query, "Miniature circuit breaker S201 C16", "S201-C16")
	require.NoError(t, err)
	gotProb, err := restored.PredictProbability(query, "Miniature circuit breaker S201 C16", "S201-C16")
	require.NoError(t, err)
	assert.InDelta(t, wantProb, gotProb, 1e-12)

	results, err := restored.Search(query, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "S201-C16", results[0].OrderCode)
}

func TestScorerSaveWithoutModelRepository(t *testing.T) {
	trainingRepo, catalogRepo, _ := newTestRepos(t)
	seedTrainingData(t, trainingRepo)

	scorer, err := NewScorer(trainingRepo, catalogRepo, WithTreeCount(5))
	require.NoError(t, err)
	defer scorer.Release()

	_, err = scorer.Train(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, scorer.Save(context.Background()), ErrModelRepositoryRequired)
}

func TestScorerRefreshPicksUpNewExamples(t *testing.T) {
	trainingRepo, catalogRepo, _ := newTestRepos(t)
	seedTrainingData(t, trainingRepo)
	seedCatalog(t, catalogRepo)

	scorer, err := NewScorer(trainingRepo, catalogRepo, WithTreeCount(10))
	require.NoError(t, err)
	defer scorer.Release()

	_, err = scorer.Train(context.Background())
	require.NoError(t, err)

	// A brand-new training pair for a catalog entry nothing boosted before.
	_, err = trainingRepo.Add(context.Background(), &core.TrainingExample{
		CustomerQuery: "molded case breaker 160A",
		OrderCode:     "TMAX-XT1",
		Description:   "Molded case circuit breaker XT1 160A",
	})
	require.NoError(t, err)
	require.NoError(t, scorer.Refresh(context.Background()))

	results, err := scorer.Search("molded case breaker 160A", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "TMAX-XT1", results[0].OrderCode)
	assert.True(t, results[0].TrainingBoosted)
}
