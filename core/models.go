package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TrainingExample pairs a historical customer query with the product it
// resolved to. The training set is append/delete-only; the same
// (query, code) pair may be stored more than once, deduplication is a
// ranking-time concern rather than a storage invariant.
type TrainingExample struct {
	Id            ID
	CustomerQuery string
	OrderCode     string
	Description   string
	InsertedAt    time.Time // When the example was inserted into the database
	UpdatedAt     time.Time // When the example was last updated
}

// PairKey returns the "(query,code)" tuple for this example.
// Both fields are trimmed so whitespace variants of the same pair collide.
// This is used for generating deterministic duplicate-detection IDs.
func (e *TrainingExample) PairKey() string {
	return "(" + strings.TrimSpace(e.CustomerQuery) + "," + strings.TrimSpace(e.OrderCode) + ")"
}

// CatalogEntry is a single product from the full catalog. The catalog is a
// superset of the products referenced by training data; an entry may have no
// corresponding training example.
type CatalogEntry struct {
	OrderCode   string
	Description string
}

// MatchType identifies how a search result was produced.
type MatchType int

const (
	// MatchTypeExact means the normalized query equalled a training query.
	MatchTypeExact MatchType = iota + 1
	// MatchTypeFuzzy means the result came from lexical and fuzzy scoring.
	MatchTypeFuzzy
)

// String returns the wire name of the match type.
func (m MatchType) String() string {
	switch m {
	case MatchTypeExact:
		return "exact"
	case MatchTypeFuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// ScoredResult is a ranked candidate for a query.
//
// TrainingQuery, TfidfScore and FuzzyScore are populated by the fast matcher
// only; probabilistic results carry Probability and TrainingBoosted.
type ScoredResult struct {
	OrderCode       string
	Description     string
	TrainingQuery   string
	Probability     float64
	TfidfScore      float64
	FuzzyScore      float64
	MatchType       MatchType
	TrainingBoosted bool
}

// TrainingReport summarises a probabilistic training run.
// Scores are coefficients of determination (R²) on the train and holdout splits.
type TrainingReport struct {
	TrainScore float64
	TestScore  float64
	Samples    int
	Positives  int
	Negatives  int
}
