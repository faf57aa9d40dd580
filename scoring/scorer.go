package scoring

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/storage"
)

const (
	// DefaultSeed drives bootstrap and negative sampling. Fixed by default
	// so repeated training runs over the same data are reproducible.
	DefaultSeed = 42

	// negativesPerExample is how many counter-examples are sampled per
	// training example, capped by the candidate pool size.
	negativesPerExample = 3

	// holdoutFraction of samples is reserved for validation reporting.
	holdoutFraction = 0.2
)

// scorerState is the immutable published state of a Scorer. Forest and
// scaler were fit together; examples and catalog are the data they rank
// over. Readers take the whole value, so a swap is never observed torn.
type scorerState struct {
	trained  bool
	forest   *forest
	scaler   *scaler
	examples []core.TrainingExample
	catalog  []core.CatalogEntry
	seed     int64
}

// Scorer ranks catalog entries for a query with a trained random-forest
// regression model plus a boost for near-matches against historical
// training queries.
//
// Reads are served from an immutable state value; Train, Refresh and Load
// publish a fresh state atomically.
type Scorer struct {
	trainingRepo storage.TrainingRepository
	catalogRepo  storage.CatalogRepository
	models       storage.ModelRepository

	current atomic.Pointer[scorerState]

	pool      *ants.Pool
	treeCount int
	seed      int64
	logger    *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithModelRepository enables Save and Load of the fitted scorer state.
func WithModelRepository(models storage.ModelRepository) Option {
	return func(s *Scorer) error {
		s.models = models
		return nil
	}
}

// WithSeed fixes the random seed used for sampling during training.
func WithSeed(seed int64) Option {
	return func(s *Scorer) error {
		s.seed = seed
		return nil
	}
}

// WithTreeCount sets the number of trees in the forest.
// Values below 1 keep the default.
func WithTreeCount(n int) Option {
	return func(s *Scorer) error {
		if n >= 1 {
			s.treeCount = n
		}
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent catalog scoring.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Scorer) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// NewScorer creates a new probabilistic scorer. The catalog repository may
// be nil; Search then requires a catalog restored via Load or derived from
// training data during Train.
func NewScorer(trainingRepo storage.TrainingRepository, catalogRepo storage.CatalogRepository, opts ...Option) (*Scorer, error) {
	if trainingRepo == nil {
		return nil, ErrTrainingRepositoryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Scorer{
		trainingRepo: trainingRepo,
		catalogRepo:  catalogRepo,
		pool:         pool,
		treeCount:    defaultTreeCount,
		seed:         DefaultSeed,
		logger:       slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}

	s.current.Store(&scorerState{seed: s.seed})
	return s, nil
}

// Release releases the worker pool.
// The scorer should not be used after calling Release.
func (s *Scorer) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Train fits a fresh forest and scaler from the stored training examples
// and publishes the new state. Each example contributes one positive sample
// and up to negativesPerExample negatives drawn from the distinct products
// referenced by training data. Concurrent searches keep using the previous
// state until the swap.
func (s *Scorer) Train(ctx context.Context) (*core.TrainingReport, error) {
	examples, err := s.trainingRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, ErrNoTrainingData
	}

	catalog, err := s.loadCatalog(ctx, examples)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(s.seed))
	samples, labels, positives := buildSamples(examples, rng)

	sc := fitScaler(samples, FeatureCount)
	scaled := sc.transformAll(samples)

	trainSamples, trainLabels, testSamples, testLabels := holdoutSplit(scaled, labels, rng)

	f := fitForest(trainSamples, trainLabels, FeatureCount, s.treeCount, rng)

	report := &core.TrainingReport{
		TrainScore: f.score(trainSamples, trainLabels),
		Samples:    len(samples),
		Positives:  positives,
		Negatives:  len(samples) - positives,
	}
	if len(testSamples) > 0 {
		report.TestScore = f.score(testSamples, testLabels)
	} else {
		report.TestScore = report.TrainScore
	}

	s.current.Store(&scorerState{
		trained:  true,
		forest:   f,
		scaler:   sc,
		examples: examples,
		catalog:  catalog,
		seed:     s.seed,
	})

	s.logger.Info("probabilistic model trained",
		"samples", report.Samples,
		"positives", report.Positives,
		"negatives", report.Negatives,
		"train_score", report.TrainScore,
		"test_score", report.TestScore)

	return report, nil
}

// PredictProbability predicts the probability that the candidate matches
// the query, clipped to [0,1]. Fails with ErrNotTrained before training.
func (s *Scorer) PredictProbability(query, description, code string) (float64, error) {
	state := s.current.Load()
	if !state.trained {
		return 0, ErrNotTrained
	}
	return state.predict(query, description, code), nil
}

// Search ranks every catalog entry by predicted match probability plus the
// training boost and returns the topK best. An empty query or non-positive
// topK yields an empty list without error; a missing model or catalog is an
// error so callers can tell it apart from no results.
func (s *Scorer) Search(query string, topK int) ([]core.ScoredResult, error) {
	state := s.current.Load()
	if !state.trained {
		return nil, ErrNotTrained
	}
	if len(state.catalog) == 0 {
		return nil, ErrCatalogRequired
	}
	if topK <= 0 || core.Normalize(query) == "" {
		return []core.ScoredResult{}, nil
	}

	boosts := trainingBoost(query, state.examples)

	results := make([]core.ScoredResult, len(state.catalog))
	var wg sync.WaitGroup
	for i := range state.catalog {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			entry := state.catalog[i]
			prob := state.predict(query, entry.Description, entry.OrderCode)

			boosted := false
			if boost, ok := boosts[entry.OrderCode]; ok {
				prob = clip01(prob + boost)
				boosted = true
			}

			results[i] = core.ScoredResult{
				OrderCode:       entry.OrderCode,
				Description:     entry.Description,
				Probability:     prob,
				TrainingBoosted: boosted,
			}
		}
		if err := s.pool.Submit(task); err != nil {
			// Pool released or overloaded; score on the caller.
			task()
		}
	}
	wg.Wait()

	// Stable sort keeps catalog order for equal probabilities.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Probability > results[b].Probability
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Refresh reloads training examples and the catalog into the published
// state without refitting the model. Called after training data changes so
// the boost table sees them.
func (s *Scorer) Refresh(ctx context.Context) error {
	state := s.current.Load()

	examples, err := s.trainingRepo.List(ctx)
	if err != nil {
		return err
	}

	catalog := state.catalog
	if s.catalogRepo != nil {
		loaded, err := s.catalogRepo.List(ctx)
		if err == nil {
			catalog = loaded
		} else if !errors.Is(err, storage.ErrDataUnavailable) {
			return err
		}
	}

	s.current.Store(&scorerState{
		trained:  state.trained,
		forest:   state.forest,
		scaler:   state.scaler,
		examples: examples,
		catalog:  catalog,
		seed:     state.seed,
	})
	return nil
}

// Save persists the trained state through the model repository.
func (s *Scorer) Save(ctx context.Context) error {
	if s.models == nil {
		return ErrModelRepositoryRequired
	}
	state := s.current.Load()
	if !state.trained {
		return ErrNotTrained
	}

	bundle := &storage.ScorerModelBundle{
		Forest: state.forest.toModel(),
		Scaler: storage.ScalerModel{
			Mean:  state.scaler.mean,
			Scale: state.scaler.scale,
		},
		Catalog:  state.catalog,
		Examples: state.examples,
		Trained:  state.trained,
		Seed:     state.seed,
	}
	return s.models.SaveScorerModel(ctx, bundle)
}

// Load restores a previously saved state and publishes it.
func (s *Scorer) Load(ctx context.Context) error {
	if s.models == nil {
		return ErrModelRepositoryRequired
	}
	bundle, err := s.models.LoadScorerModel(ctx)
	if err != nil {
		return err
	}

	s.current.Store(&scorerState{
		trained:  bundle.Trained,
		forest:   forestFromModel(bundle.Forest),
		scaler:   &scaler{mean: bundle.Scaler.Mean, scale: bundle.Scaler.Scale},
		examples: bundle.Examples,
		catalog:  bundle.Catalog,
		seed:     bundle.Seed,
	})
	return nil
}

// predict runs the full feature-extract, scale, regress pipeline against
// this state.
func (st *scorerState) predict(query, description, code string) float64 {
	features := ExtractFeatures(query, description, code)
	scaled := st.scaler.transform(features)
	return clip01(st.forest.predict(scaled))
}

// loadCatalog fetches the catalog, falling back to the distinct products
// referenced by training data when no catalog has been loaded.
func (s *Scorer) loadCatalog(ctx context.Context, examples []core.TrainingExample) ([]core.CatalogEntry, error) {
	if s.catalogRepo != nil {
		catalog, err := s.catalogRepo.List(ctx)
		if err == nil {
			return catalog, nil
		}
		if !errors.Is(err, storage.ErrDataUnavailable) {
			return nil, err
		}
	}
	s.logger.Warn("no product catalog loaded, deriving catalog from training data")
	return distinctProducts(examples), nil
}

// buildSamples assembles the labeled feature matrix: one positive per
// example and up to negativesPerExample sampled counter-examples from the
// other products referenced by training data.
func buildSamples(examples []core.TrainingExample, rng *rand.Rand) (samples [][]float64, labels []float64, positives int) {
	pool := distinctProducts(examples)

	for i := range examples {
		example := &examples[i]

		samples = append(samples, ExtractFeatures(example.CustomerQuery, example.Description, example.OrderCode))
		labels = append(labels, 1.0)
		positives++

		candidates := make([]int, 0, len(pool))
		for j := range pool {
			if pool[j].OrderCode != example.OrderCode {
				candidates = append(candidates, j)
			}
		}

		want := negativesPerExample
		if len(pool)-1 < want {
			want = len(pool) - 1
		}
		if want > len(candidates) {
			want = len(candidates)
		}
		if want <= 0 {
			continue
		}

		perm := rng.Perm(len(candidates))
		for _, p := range perm[:want] {
			neg := pool[candidates[p]]
			samples = append(samples, ExtractFeatures(example.CustomerQuery, neg.Description, neg.OrderCode))
			labels = append(labels, 0.0)
		}
	}

	return samples, labels, positives
}

// holdoutSplit shuffles the samples and reserves holdoutFraction of them
// for validation. Very small sample sets are kept whole.
func holdoutSplit(samples [][]float64, labels []float64, rng *rand.Rand) (trainS [][]float64, trainL []float64, testS [][]float64, testL []float64) {
	n := len(samples)
	testN := int(float64(n) * holdoutFraction)
	if testN == 0 {
		return samples, labels, nil, nil
	}

	perm := rng.Perm(n)
	for pos, i := range perm {
		if pos < testN {
			testS = append(testS, samples[i])
			testL = append(testL, labels[i])
		} else {
			trainS = append(trainS, samples[i])
			trainL = append(trainL, labels[i])
		}
	}
	return trainS, trainL, testS, testL
}

// distinctProducts returns the distinct (code, description) pairs from the
// training examples in first-seen order.
func distinctProducts(examples []core.TrainingExample) []core.CatalogEntry {
	seen := make(map[core.CatalogEntry]struct{}, len(examples))
	var products []core.CatalogEntry
	for i := range examples {
		entry := core.CatalogEntry{
			OrderCode:   examples[i].OrderCode,
			Description: examples[i].Description,
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		products = append(products, entry)
	}
	return products
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
