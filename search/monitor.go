package search

import (
	"github.com/poiesic/prodmatch/core"
)

// MatchMonitor provides hooks to observe the matching process.
// Implement this interface to track intermediate steps and results during search.
type MatchMonitor interface {
	Start(query string)
	ExactHit(example *core.TrainingExample)
	AfterExactPass(hits int)
	AfterLexicalScoring(similarities []float64)
	FuzzyHit(example *core.TrainingExample, combined float64)
	Finish(results []core.ScoredResult)
}

// noopMonitor is a no-op implementation of MatchMonitor
type noopMonitor struct{}

var _ MatchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) ExactHit(_ *core.TrainingExample)            {}
func (n *noopMonitor) AfterExactPass(_ int)                        {}
func (n *noopMonitor) AfterLexicalScoring(_ []float64)             {}
func (n *noopMonitor) FuzzyHit(_ *core.TrainingExample, _ float64) {}
func (n *noopMonitor) Finish(_ []core.ScoredResult)                {}
