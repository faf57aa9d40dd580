package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync/atomic"

	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/fuzz"
	"github.com/poiesic/prodmatch/lexical"
	"github.com/poiesic/prodmatch/storage"
)

const (
	// DefaultTfidfWeight and DefaultFuzzyWeight blend the lexical and fuzzy
	// scores of a candidate. The defaults are fixed constants of the ranking
	// design, not tuned values.
	DefaultTfidfWeight = 0.7
	DefaultFuzzyWeight = 0.3

	// DefaultCandidateMultiplier controls how many lexical candidates are
	// examined per requested result before fuzzy refinement.
	DefaultCandidateMultiplier = 3
)

// Matcher ranks catalog candidates for free-text queries using exact,
// lexical and fuzzy matching over historical training examples.
//
// All reads are served from an immutable snapshot; Rebuild, Load and
// AddTrainingExample publish a fresh snapshot atomically, so concurrent
// searches never observe a half-built index.
type Matcher struct {
	trainingRepo storage.TrainingRepository
	models       storage.ModelRepository

	current atomic.Pointer[snapshot]

	tfidfWeight         float64
	fuzzyWeight         float64
	candidateMultiplier int
	indexOpts           []lexical.Option
	logger              *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithModelRepository enables Save and Load of the fitted matcher state.
func WithModelRepository(models storage.ModelRepository) Option {
	return func(m *Matcher) error {
		m.models = models
		return nil
	}
}

// WithBlendWeights overrides the lexical/fuzzy score blend.
// Defaults are DefaultTfidfWeight and DefaultFuzzyWeight.
func WithBlendWeights(tfidf, fuzzy float64) Option {
	return func(m *Matcher) error {
		if tfidf < 0 || fuzzy < 0 || tfidf+fuzzy == 0 {
			return fmt.Errorf("invalid blend weights: tfidf=%v fuzzy=%v", tfidf, fuzzy)
		}
		m.tfidfWeight = tfidf
		m.fuzzyWeight = fuzzy
		return nil
	}
}

// WithCandidateMultiplier overrides how many lexical candidates are examined
// per requested result. Values below 1 keep the default.
func WithCandidateMultiplier(n int) Option {
	return func(m *Matcher) error {
		if n >= 1 {
			m.candidateMultiplier = n
		}
		return nil
	}
}

// WithIndexOptions forwards options to the lexical index builds.
func WithIndexOptions(opts ...lexical.Option) Option {
	return func(m *Matcher) error {
		m.indexOpts = opts
		return nil
	}
}

// NewMatcher creates a new matcher over the given training repository.
// The matcher starts with an empty snapshot; call Rebuild or Load to
// populate it from storage.
func NewMatcher(trainingRepo storage.TrainingRepository, opts ...Option) (*Matcher, error) {
	if trainingRepo == nil {
		return nil, ErrTrainingRepositoryRequired
	}

	m := &Matcher{
		trainingRepo:        trainingRepo,
		tfidfWeight:         DefaultTfidfWeight,
		fuzzyWeight:         DefaultFuzzyWeight,
		candidateMultiplier: DefaultCandidateMultiplier,
		logger:              slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	m.current.Store(newSnapshot(nil, m.indexOpts...))
	return m, nil
}

// Rebuild reloads the training set and refits the lexical index. The new
// snapshot replaces the current one only after the build fully succeeds;
// in-flight searches keep reading the previous snapshot.
func (m *Matcher) Rebuild(ctx context.Context) error {
	examples, err := m.trainingRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading training examples: %w", err)
	}

	snap := newSnapshot(examples, m.indexOpts...)
	m.current.Store(snap)
	m.logger.Debug("rebuilt fast matcher snapshot",
		"examples", len(examples), "vocabulary", snap.index.VocabularySize())
	return nil
}

// Examples returns the number of training examples in the current snapshot.
func (m *Matcher) Examples() int {
	return len(m.current.Load().examples)
}

// SearchFast returns up to topK ranked candidates for the query.
// A non-positive topK or an empty query yields an empty result list.
func (m *Matcher) SearchFast(query string, topK int) []core.ScoredResult {
	return m.SearchFastWithMonitor(query, topK, nil)
}

// SearchFastWithMonitor performs the two-pass search with monitoring hooks.
// The monitor receives callbacks at each stage of the matching process.
func (m *Matcher) SearchFastWithMonitor(query string, topK int, monitor MatchMonitor) []core.ScoredResult {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	results := []core.ScoredResult{}
	normalized := core.Normalize(query)
	if topK <= 0 || normalized == "" {
		monitor.Finish(results)
		return results
	}

	snap := m.current.Load()

	// FIRST PASS: exact matches against normalized training queries.
	// Several examples may share the same normalized query; all are emitted.
	exact := make([]core.ScoredResult, 0, 1)
	exactRows := make(map[int]struct{})
	for i := range snap.examples {
		if snap.normalizedQueries[i] != normalized {
			continue
		}
		example := &snap.examples[i]
		exact = append(exact, core.ScoredResult{
			OrderCode:     example.OrderCode,
			Description:   example.Description,
			TrainingQuery: example.CustomerQuery,
			Probability:   1.0,
			TfidfScore:    1.0,
			FuzzyScore:    1.0,
			MatchType:     core.MatchTypeExact,
		})
		exactRows[i] = struct{}{}
		monitor.ExactHit(example)
	}
	monitor.AfterExactPass(len(exact))

	// SECOND PASS: lexical retrieval plus fuzzy refinement.
	queryVec := snap.index.Vectorize(normalized)
	sims := snap.index.RowSimilarities(queryVec)
	monitor.AfterLexicalScoring(sims)

	order := make([]int, len(sims))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sims[order[a]] > sims[order[b]]
	})
	if limit := topK * m.candidateMultiplier; len(order) > limit {
		order = order[:limit]
	}

	fuzzyResults := make([]core.ScoredResult, 0, topK)
	for _, row := range order {
		// A restored index may carry more rows than examples; stale rows
		// are skipped rather than crashing the matcher.
		if row >= len(snap.examples) {
			continue
		}
		if _, ok := exactRows[row]; ok {
			continue
		}
		if len(fuzzyResults) >= topK {
			break
		}

		example := &snap.examples[row]
		trainingQuery := snap.normalizedQueries[row]
		description := core.Normalize(example.Description)

		fuzzyScore := math.Max(
			fuzz.PartialRatio(normalized, trainingQuery),
			math.Max(
				fuzz.TokenSortRatio(normalized, trainingQuery),
				fuzz.PartialRatio(normalized, description),
			),
		) / 100.0

		combined := m.tfidfWeight*sims[row] + m.fuzzyWeight*fuzzyScore
		monitor.FuzzyHit(example, combined)

		fuzzyResults = append(fuzzyResults, core.ScoredResult{
			OrderCode:     example.OrderCode,
			Description:   example.Description,
			TrainingQuery: example.CustomerQuery,
			Probability:   combined,
			TfidfScore:    sims[row],
			FuzzyScore:    fuzzyScore,
			MatchType:     core.MatchTypeFuzzy,
		})
	}

	// Fuzzy results are ordered by combined score; the stable sort keeps
	// candidate order for equal scores.
	sort.SliceStable(fuzzyResults, func(a, b int) bool {
		return fuzzyResults[a].Probability > fuzzyResults[b].Probability
	})

	// Merge exact then fuzzy, dedup by order code keeping the first
	// occurrence so an exact match always wins for the same code.
	seen := make(map[string]struct{}, len(exact)+len(fuzzyResults))
	for _, result := range append(exact, fuzzyResults...) {
		if _, ok := seen[result.OrderCode]; ok {
			continue
		}
		seen[result.OrderCode] = struct{}{}
		results = append(results, result)
	}
	if len(results) > topK {
		results = results[:topK]
	}

	monitor.Finish(results)
	return results
}

// AddTrainingExample stores a new training example and rebuilds the
// snapshot. Duplicate (query, code) pairs are accepted; the training set
// does not enforce uniqueness.
func (m *Matcher) AddTrainingExample(ctx context.Context, query, orderCode, description string) error {
	example := &core.TrainingExample{
		CustomerQuery: query,
		OrderCode:     orderCode,
		Description:   description,
	}
	if err := core.ValidateTrainingExample(example); err != nil {
		return err
	}

	if _, err := m.trainingRepo.Add(ctx, example); err != nil {
		return fmt.Errorf("storing training example: %w", err)
	}
	return m.Rebuild(ctx)
}

// RemoveTrainingExample deletes a training example by ID and rebuilds the
// snapshot. Returns false if no example with that ID exists.
func (m *Matcher) RemoveTrainingExample(ctx context.Context, id core.ID) (bool, error) {
	found, err := m.trainingRepo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return true, m.Rebuild(ctx)
}

// Save persists the current snapshot (vocabulary, IDF weights, ordered
// training examples and document rows) through the model repository.
func (m *Matcher) Save(ctx context.Context) error {
	if m.models == nil {
		return ErrModelRepositoryRequired
	}

	snap := m.current.Load()
	bundle := &storage.FastModelBundle{
		Terms:    snap.index.Terms(),
		IDF:      snap.index.IDF(),
		Examples: snap.examples,
		Rows:     make([]map[int]float64, snap.index.Rows()),
	}
	for i := range bundle.Rows {
		bundle.Rows[i] = snap.index.Row(i)
	}

	return m.models.SaveFastModel(ctx, bundle)
}

// Load restores a previously saved snapshot without refitting the index.
func (m *Matcher) Load(ctx context.Context) error {
	if m.models == nil {
		return ErrModelRepositoryRequired
	}

	bundle, err := m.models.LoadFastModel(ctx)
	if err != nil {
		return err
	}

	rows := make([]lexical.SparseVector, len(bundle.Rows))
	for i := range bundle.Rows {
		rows[i] = bundle.Rows[i]
	}
	index := lexical.Restore(bundle.Terms, bundle.IDF, rows)
	m.current.Store(restoredSnapshot(bundle.Examples, index))
	return nil
}
