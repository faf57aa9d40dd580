package storage

import (
	"context"

	"github.com/poiesic/prodmatch/core"
)

// BulkInsertResult reports the outcome of a bulk training-data load.
type BulkInsertResult struct {
	Added      int
	Duplicates int
}

// TrainingRepository provides operations for managing training examples.
// The stored set is append/delete-only and preserves insertion order.
// Implementations must be thread-safe and support concurrent access.
type TrainingRepository interface {
	// Add stores one or more training examples.
	// For examples with ID=0, generates new IDs from sequence.
	// Sets InsertedAt timestamp if not already set.
	// Duplicate (CustomerQuery, OrderCode) pairs are accepted; uniqueness
	// is not a storage invariant.
	// Returns the examples with generated IDs and timestamps populated.
	Add(ctx context.Context, examples ...*core.TrainingExample) ([]*core.TrainingExample, error)

	// Delete removes a training example by ID.
	// Returns false (without error) if no example with that ID exists.
	Delete(ctx context.Context, id core.ID) (bool, error)

	// Get retrieves a single training example by ID.
	// Returns ErrNotFound if the example doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.TrainingExample, error)

	// List retrieves all training examples in stable insertion order.
	List(ctx context.Context) ([]core.TrainingExample, error)

	// BulkInsert stores multiple examples, optionally skipping duplicates.
	// A duplicate is an example whose (CustomerQuery, OrderCode) pair,
	// after trimming, matches an already stored example. Blank rows are
	// skipped silently.
	BulkInsert(ctx context.Context, examples []*core.TrainingExample, skipDuplicates bool) (*BulkInsertResult, error)

	// Count returns the number of stored training examples.
	Count(ctx context.Context) (int, error)

	// Close closes the repository and releases resources.
	Close() error
}

// CatalogRepository provides operations for managing the product catalog.
type CatalogRepository interface {
	// Replace atomically replaces the entire catalog with the given
	// entries, preserving their order.
	Replace(ctx context.Context, entries []core.CatalogEntry) error

	// List retrieves all catalog entries in load order.
	// Returns ErrDataUnavailable if no catalog has been loaded.
	List(ctx context.Context) ([]core.CatalogEntry, error)

	// Count returns the number of stored catalog entries.
	Count(ctx context.Context) (int, error)

	// Close closes the repository and releases resources.
	Close() error
}

// ModelRepository persists fitted model artifacts as opaque bundles.
// A bundle is versioned as a whole: partial updates are not supported.
type ModelRepository interface {
	// SaveFastModel persists the fast matcher bundle, replacing any
	// previous version.
	SaveFastModel(ctx context.Context, bundle *FastModelBundle) error

	// LoadFastModel retrieves the fast matcher bundle.
	// Returns ErrNotFound if no bundle has been saved.
	LoadFastModel(ctx context.Context) (*FastModelBundle, error)

	// SaveScorerModel persists the probabilistic scorer bundle, replacing
	// any previous version.
	SaveScorerModel(ctx context.Context, bundle *ScorerModelBundle) error

	// LoadScorerModel retrieves the probabilistic scorer bundle.
	// Returns ErrNotFound if no bundle has been saved.
	LoadScorerModel(ctx context.Context) (*ScorerModelBundle, error)
}

// FastModelBundle is the persisted state of the fast matcher: the fitted
// vocabulary with its IDF weights, the ordered training examples and the
// sparse document-term rows aligned with them.
type FastModelBundle struct {
	Terms    []string
	IDF      []float64
	Examples []core.TrainingExample
	Rows     []map[int]float64
}

// ScalerModel is the persisted per-feature standardisation state.
type ScalerModel struct {
	Mean  []float64
	Scale []float64
}

// TreeNode is one node of a persisted regression tree. Leaf nodes carry a
// prediction in Value; interior nodes split on Feature at Threshold with
// child indices into the tree's node array.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Leaf      bool
}

// TreeModel is a persisted regression tree in flattened array form.
type TreeModel struct {
	Nodes []TreeNode
}

// ForestModel is a persisted ensemble of regression trees.
type ForestModel struct {
	Trees        []TreeModel
	FeatureCount int
}

// ScorerModelBundle is the persisted state of the probabilistic scorer.
// Forest and Scaler are fit jointly and must only be used together.
type ScorerModelBundle struct {
	Forest   ForestModel
	Scaler   ScalerModel
	Catalog  []core.CatalogEntry
	Examples []core.TrainingExample
	Trained  bool
	Seed     int64
}
