package search

import (
	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/lexical"
)

// snapshot is an immutable view of the training set and its fitted lexical
// index. Row i of the index corresponds to examples[i]; keeping both in one
// value guarantees the pairing survives rebuilds, and readers holding an old
// snapshot keep a consistent view while a new one is being published.
type snapshot struct {
	examples          []core.TrainingExample
	normalizedQueries []string // row-aligned with examples
	index             *lexical.Index
}

// newSnapshot fits a lexical index over the examples' customer queries.
// A nil or empty example set produces a queryable placeholder index.
func newSnapshot(examples []core.TrainingExample, indexOpts ...lexical.Option) *snapshot {
	queries := make([]string, len(examples))
	for i := range examples {
		queries[i] = core.Normalize(examples[i].CustomerQuery)
	}

	return &snapshot{
		examples:          examples,
		normalizedQueries: queries,
		index:             lexical.Build(queries, indexOpts...),
	}
}

// restoredSnapshot rebuilds a snapshot from persisted index state without
// refitting the vocabulary.
func restoredSnapshot(examples []core.TrainingExample, index *lexical.Index) *snapshot {
	queries := make([]string, len(examples))
	for i := range examples {
		queries[i] = core.Normalize(examples[i].CustomerQuery)
	}

	return &snapshot{
		examples:          examples,
		normalizedQueries: queries,
		index:             index,
	}
}
