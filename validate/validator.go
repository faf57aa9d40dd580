// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package validate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/storage"
)

// SearchFunc returns ranked candidates for a query. Both the fast matcher
// and the probabilistic scorer can be adapted to this shape.
type SearchFunc func(query string, topK int) ([]core.ScoredResult, error)

// Config holds configuration for a validation run.
type Config struct {
	// TopK is how many candidates to request per query
	TopK int

	// ReportInterval is how often to report progress (number of queries)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TopK:           5,
		ReportInterval: 100,
	}
}

// Report summarises a validation run.
type Report struct {
	Total    int
	Top1Hits int
	TopKHits int
	Errors   int
	Elapsed  time.Duration
}

// Top1Accuracy returns the fraction of queries whose expected order code
// was ranked first. Returns 0 for an empty run.
func (r *Report) Top1Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Top1Hits) / float64(r.Total)
}

// TopKAccuracy returns the fraction of queries whose expected order code
// appeared anywhere in the requested candidates. Returns 0 for an empty run.
func (r *Report) TopKAccuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.TopKHits) / float64(r.Total)
}

// Validator replays stored training queries through a search function.
type Validator struct {
	repo     storage.TrainingRepository
	search   SearchFunc
	config   *Config
	progress io.Writer
}

// NewValidator creates a new validator.
// progress: where to write progress output (typically os.Stderr)
func NewValidator(repo storage.TrainingRepository, search SearchFunc, config *Config, progress io.Writer) (*Validator, error) {
	if repo == nil {
		return nil, ErrTrainingRepositoryRequired
	}
	if search == nil {
		return nil, ErrSearchFuncRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Validator{
		repo:     repo,
		search:   search,
		config:   config,
		progress: progress,
	}, nil
}

// Run replays every stored training query and measures ranking accuracy.
// A query counts as a top-1 hit when its order code is ranked first, and
// as a top-K hit when it appears anywhere in the returned candidates.
// Search errors are counted rather than aborting the run.
func (v *Validator) Run(ctx context.Context) (*Report, error) {
	examples, err := v.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list training examples: %w", err)
	}

	report := &Report{Total: len(examples)}
	if len(examples) == 0 {
		fmt.Fprintf(v.progress, "No training examples found (0 queries)\n")
		return report, nil
	}

	fmt.Fprintf(v.progress, "Validating %d queries (top-%d)\n",
		len(examples), v.config.TopK)

	tracker := NewProgressTracker(v.progress, len(examples), v.config.ReportInterval)
	tracker.Start()

	for i, example := range examples {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		results, err := v.search(example.CustomerQuery, v.config.TopK)
		if err != nil {
			report.Errors++
			tracker.Update(i + 1)
			continue
		}

		for rank, result := range results {
			if result.OrderCode != example.OrderCode {
				continue
			}
			report.TopKHits++
			if rank == 0 {
				report.Top1Hits++
			}
			break
		}
		tracker.Update(i + 1)
	}

	tracker.Finish()
	report.Elapsed = tracker.Elapsed()

	fmt.Fprintf(v.progress, "Validation complete. %d/%d top-1 (%.1f%%), %d/%d top-%d (%.1f%%) in %v\n",
		report.Top1Hits, report.Total, report.Top1Accuracy()*100,
		report.TopKHits, report.Total, v.config.TopK, report.TopKAccuracy()*100,
		report.Elapsed.Round(time.Millisecond))

	return report, nil
}
