package prodmatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/prodmatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.TrainingRepository())
		assert.NotNil(t, db.CatalogRepository())
		assert.NotNil(t, db.ModelRepository())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("in-memory database", func(t *testing.T) {
		db, err := NewDatabase("", WithInMemoryStorage())
		require.NoError(t, err)
		defer db.Close()
		assert.NotNil(t, db.TrainingRepository())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := NewDatabase(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, db)

	// Close the database
	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase("", WithInMemoryStorage())
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create matcher", func(t *testing.T) {
		matcher, err := db.NewMatcher()
		require.NoError(t, err)
		require.NotNil(t, matcher)
	})

	t.Run("can create scorer", func(t *testing.T) {
		scorer, err := db.NewScorer()
		require.NoError(t, err)
		require.NotNil(t, scorer)
		scorer.Release()
	})

	t.Run("can create pipeline", func(t *testing.T) {
		pipeline, err := db.NewPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create validator", func(t *testing.T) {
		matcher, err := db.NewMatcher()
		require.NoError(t, err)
		validator, err := db.NewValidator(func(query string, topK int) ([]core.ScoredResult, error) {
			return matcher.SearchFast(query, topK), nil
		}, nil, nil)
		require.NoError(t, err)
		require.NotNil(t, validator)
	})
}

func TestDatabase_EndToEnd(t *testing.T) {
	db, err := NewDatabase("", WithInMemoryStorage())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	// Import training data and a catalog through the pipeline.
	pipeline, err := db.NewPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	dir := t.TempDir()
	trainingPath := filepath.Join(dir, "training.csv")
	require.NoError(t, os.WriteFile(trainingPath, []byte(strings.Join([]string{
		"Customer Query,Order Code,Description",
		"acb 800a 4 pole,1SDA072894R1,Air circuit breaker 4-pole 800A",
		"contactor 9a coil 24v,AF09-30-10,Contactor 9A 24V coil",
		"surge arrester type 2,OVR-T2,Surge arrester type 2",
		"mccb 250a,XT4N250,Moulded case circuit breaker 250A",
		"",
	}, "\n")), 0644))

	catalogPath := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(catalogPath, []byte(strings.Join([]string{
		"Order Code,Description",
		"1SDA072894R1,Air circuit breaker 4-pole 800A",
		"AF09-30-10,Contactor 9A 24V coil",
		"OVR-T2,Surge arrester type 2",
		"XT4N250,Moulded case circuit breaker 250A",
		"",
	}, "\n")), 0644))

	result, err := pipeline.ImportTrainingFile(ctx, trainingPath, true)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Added)

	n, err := pipeline.ImportCatalog(ctx, catalogPath)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// Fast search.
	matcher, err := db.NewMatcher()
	require.NoError(t, err)
	require.NoError(t, matcher.Rebuild(ctx))

	fast := matcher.SearchFast("acb 800a 4 pole", 3)
	require.NotEmpty(t, fast)
	assert.Equal(t, "1SDA072894R1", fast[0].OrderCode)

	// Probabilistic search.
	scorer, err := db.NewScorer()
	require.NoError(t, err)
	defer scorer.Release()

	_, err = scorer.Train(ctx)
	require.NoError(t, err)

	prob, err := scorer.Search("acb 800a 4 pole", 3)
	require.NoError(t, err)
	require.NotEmpty(t, prob)
	assert.Equal(t, "1SDA072894R1", prob[0].OrderCode)

	// Validation replays the training queries.
	validator, err := db.NewValidator(scorer.Search, nil, nil)
	require.NoError(t, err)
	report, err := validator.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 0, report.Errors)
}
