package lexical

import (
	"fmt"
	"math"
	"sort"

	"github.com/poiesic/prodmatch/core"
)

// DefaultMaxFeatures caps the vocabulary size of a fitted Index.
const DefaultMaxFeatures = 1000

// placeholderQuery keeps an Index queryable when fitted on an empty corpus.
const placeholderQuery = "default query"

// SparseVector maps vocabulary column -> TF-IDF weight. Absent columns are
// zero. Vectors are only meaningful against the Index that produced them.
type SparseVector map[int]float64

// Norm returns the Euclidean norm of the vector.
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Index is a fitted TF-IDF vector space. It is immutable after Build and
// safe for concurrent reads.
type Index struct {
	terms      []string       // column -> term, in vocabulary order
	vocabulary map[string]int // term -> column
	idf        []float64      // column -> smoothed inverse document frequency
	rows       []SparseVector // one L2-normalised row per input query
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	maxFeatures int
}

// WithMaxFeatures overrides the vocabulary size cap.
// Values below 1 fall back to DefaultMaxFeatures.
func WithMaxFeatures(n int) Option {
	return func(o *buildOptions) {
		if n >= 1 {
			o.maxFeatures = n
		}
	}
}

// Build fits a new Index over the given queries, preserving their order:
// row i of the index corresponds to queries[i]. An empty input is fitted on
// a single placeholder query so the index remains queryable.
func Build(queries []string, opts ...Option) *Index {
	options := &buildOptions{maxFeatures: DefaultMaxFeatures}
	for _, opt := range opts {
		opt(options)
	}

	docs := make([][]string, 0, len(queries))
	for _, q := range queries {
		docs = append(docs, ngrams(q))
	}
	if len(docs) == 0 {
		docs = [][]string{ngrams(placeholderQuery)}
	}

	idx := &Index{}
	idx.fitVocabulary(docs, options.maxFeatures)
	idx.fitIDF(docs)

	idx.rows = make([]SparseVector, len(docs))
	for i, doc := range docs {
		idx.rows[i] = idx.vectorizeTerms(doc)
	}
	if len(queries) == 0 {
		// The placeholder fits the vocabulary but contributes no rows;
		// callers see an index with zero training rows.
		idx.rows = idx.rows[:0]
	}
	return idx
}

// Restore reconstructs an Index from previously persisted state. Rows must
// have been produced by an index with the same terms and idf weights.
func Restore(terms []string, idf []float64, rows []SparseVector) *Index {
	vocabulary := make(map[string]int, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
	}
	return &Index{
		terms:      terms,
		vocabulary: vocabulary,
		idf:        idf,
		rows:       rows,
	}
}

// Vectorize projects arbitrary text into the fitted space. Terms outside the
// vocabulary contribute zero weight; the result is L2-normalised.
func (idx *Index) Vectorize(text string) SparseVector {
	return idx.vectorizeTerms(ngrams(text))
}

// Rows returns the number of fitted document rows.
func (idx *Index) Rows() int {
	return len(idx.rows)
}

// Row returns the fitted vector for document i.
func (idx *Index) Row(i int) SparseVector {
	return idx.rows[i]
}

// Terms returns the vocabulary in column order.
func (idx *Index) Terms() []string {
	return idx.terms
}

// IDF returns the per-column inverse document frequencies.
func (idx *Index) IDF() []float64 {
	return idx.idf
}

// RowSimilarities computes the cosine similarity of v against every fitted
// row, in row order.
func (idx *Index) RowSimilarities(v SparseVector) []float64 {
	sims := make([]float64, len(idx.rows))
	for i, row := range idx.rows {
		sims[i] = CosineSimilarity(v, row)
	}
	return sims
}

// CosineSimilarity returns the normalized dot product of two sparse vectors.
// Similarity against a zero vector is defined as 0.
func CosineSimilarity(a, b SparseVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller vector.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for col, wa := range a {
		if wb, ok := b[col]; ok {
			dot += wa * wb
		}
	}
	if dot == 0 {
		return 0
	}
	normA, normB := a.Norm(), b.Norm()
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

// ngrams normalizes text, removes stop words and emits word 1- and 2-grams.
func ngrams(text string) []string {
	tokens := core.Tokens(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !isStopWord(tok) {
			kept = append(kept, tok)
		}
	}

	terms := make([]string, 0, 2*len(kept))
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// fitVocabulary selects up to maxFeatures terms by corpus frequency,
// breaking ties alphabetically, then assigns columns in term order.
func (idx *Index) fitVocabulary(docs [][]string, maxFeatures int) {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, term := range doc {
			counts[term]++
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	// Columns are assigned in lexicographic term order so the fitted space
	// is independent of the frequency ordering above.
	sort.Strings(terms)

	idx.terms = terms
	idx.vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		idx.vocabulary[term] = i
	}
}

// fitIDF computes smoothed inverse document frequencies:
// idf = ln((1+n)/(1+df)) + 1.
func (idx *Index) fitIDF(docs [][]string) {
	df := make([]int, len(idx.terms))
	for _, doc := range docs {
		seen := make(map[int]struct{}, len(doc))
		for _, term := range doc {
			if col, ok := idx.vocabulary[term]; ok {
				seen[col] = struct{}{}
			}
		}
		for col := range seen {
			df[col]++
		}
	}

	n := float64(len(docs))
	idx.idf = make([]float64, len(idx.terms))
	for col, freq := range df {
		idx.idf[col] = math.Log((1+n)/(1+float64(freq))) + 1
	}
}

func (idx *Index) vectorizeTerms(terms []string) SparseVector {
	vec := make(SparseVector)
	for _, term := range terms {
		if col, ok := idx.vocabulary[term]; ok {
			vec[col]++
		}
	}
	for col := range vec {
		vec[col] *= idx.idf[col]
	}

	norm := vec.Norm()
	if norm > 0 {
		for col := range vec {
			vec[col] /= norm
		}
	}
	return vec
}

// VocabularySize returns the number of fitted terms.
func (idx *Index) VocabularySize() int {
	return len(idx.terms)
}

// String renders a short diagnostic description of the index.
func (idx *Index) String() string {
	return fmt.Sprintf("lexical.Index{terms: %d, rows: %d}", len(idx.terms), len(idx.rows))
}
