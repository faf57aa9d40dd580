package validate

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/storage"
	"github.com/poiesic/prodmatch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) storage.TrainingRepository {
	t.Helper()
	trainingRepo, _, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		trainingRepo.Close()
		backend.Close()
	})
	return trainingRepo
}

func seedExamples(t *testing.T, repo storage.TrainingRepository) {
	t.Helper()
	examples := []*core.TrainingExample{
		{CustomerQuery: "acb 800a", OrderCode: "1SDA072894R1", Description: "Air circuit breaker"},
		{CustomerQuery: "contactor 9a", OrderCode: "AF09-30-10", Description: "Contactor"},
		{CustomerQuery: "surge arrester", OrderCode: "OVR-T2", Description: "Surge arrester type 2"},
	}
	_, err := repo.BulkInsert(context.Background(), examples, false)
	require.NoError(t, err)
}

// rankedSearch returns a fixed result set per query, used to exercise
// the hit accounting without a real model.
func rankedSearch(rankings map[string][]string) SearchFunc {
	return func(query string, topK int) ([]core.ScoredResult, error) {
		codes := rankings[query]
		if len(codes) > topK {
			codes = codes[:topK]
		}
		results := make([]core.ScoredResult, len(codes))
		for i, code := range codes {
			results[i] = core.ScoredResult{OrderCode: code}
		}
		return results, nil
	}
}

func TestNewValidator(t *testing.T) {
	repo := newTestRepo(t)
	search := rankedSearch(nil)

	t.Run("valid configuration", func(t *testing.T) {
		v, err := NewValidator(repo, search, nil, nil)
		require.NoError(t, err)
		assert.NotNil(t, v)
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewValidator(nil, search, nil, nil)
		assert.Equal(t, ErrTrainingRepositoryRequired, err)
	})

	t.Run("nil search function", func(t *testing.T) {
		_, err := NewValidator(repo, nil, nil, nil)
		assert.Equal(t, ErrSearchFuncRequired, err)
	})
}

func TestRunAccuracy(t *testing.T) {
	repo := newTestRepo(t)
	seedExamples(t, repo)

	// One top-1 hit, one top-K hit ranked second, one miss.
	search := rankedSearch(map[string][]string{
		"acb 800a":       {"1SDA072894R1", "OVR-T2"},
		"contactor 9a":   {"OVR-T2", "AF09-30-10"},
		"surge arrester": {"AF09-30-10"},
	})

	var out bytes.Buffer
	v, err := NewValidator(repo, search, &Config{TopK: 5, ReportInterval: 1}, &out)
	require.NoError(t, err)

	report, err := v.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Top1Hits)
	assert.Equal(t, 2, report.TopKHits)
	assert.Equal(t, 0, report.Errors)
	assert.InDelta(t, 1.0/3.0, report.Top1Accuracy(), 1e-12)
	assert.InDelta(t, 2.0/3.0, report.TopKAccuracy(), 1e-12)
	assert.Contains(t, out.String(), "Validation complete")
}

func TestRunEmptyRepository(t *testing.T) {
	repo := newTestRepo(t)

	var out bytes.Buffer
	v, err := NewValidator(repo, rankedSearch(nil), nil, &out)
	require.NoError(t, err)

	report, err := v.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0.0, report.Top1Accuracy())
	assert.Equal(t, 0.0, report.TopKAccuracy())
	assert.Contains(t, out.String(), "No training examples")
}

func TestRunCountsSearchErrors(t *testing.T) {
	repo := newTestRepo(t)
	seedExamples(t, repo)

	failing := func(query string, topK int) ([]core.ScoredResult, error) {
		if query == "contactor 9a" {
			return nil, errors.New("scorer unavailable")
		}
		return []core.ScoredResult{{OrderCode: "1SDA072894R1"}}, nil
	}

	v, err := NewValidator(repo, failing, &Config{TopK: 3, ReportInterval: 100}, nil)
	require.NoError(t, err)

	report, err := v.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Top1Hits)
}

func TestRunContextCancellation(t *testing.T) {
	repo := newTestRepo(t)
	seedExamples(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := NewValidator(repo, rankedSearch(nil), nil, nil)
	require.NoError(t, err)

	_, err = v.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgressTracker(t *testing.T) {
	var out bytes.Buffer
	tracker := NewProgressTracker(&out, 10, 5)
	tracker.Start()
	tracker.Update(5)
	tracker.Finish()

	assert.Contains(t, out.String(), "5/10")
	assert.Contains(t, out.String(), "10/10")
	assert.True(t, tracker.Elapsed() > 0)
}
