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


package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/prodmatch"
	"github.com/poiesic/prodmatch/config"
	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/scoring"
	"github.com/poiesic/prodmatch/search"
	"github.com/poiesic/prodmatch/storage"
	"github.com/poiesic/prodmatch/validate"
	"github.com/urfave/cli/v2"
)

var cfg *config.Config

func main() {
	app := &cli.App{
		Name:  "prodmatch",
		Usage: "Product matching engine for free-text customer queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Import training CSV files and an optional product catalog",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "training-dir",
						Usage: "Directory of training CSV files",
					},
					&cli.StringFlag{
						Name:  "training-file",
						Usage: "Single training CSV file",
					},
					&cli.StringFlag{
						Name:  "catalog",
						Usage: "Product catalog CSV file",
					},
					&cli.BoolFlag{
						Name:  "keep-duplicates",
						Usage: "Keep duplicate query/code pairs instead of skipping them",
					},
				},
			},
			{
				Name:   "train",
				Usage:  "Fit the fast matcher and the probabilistic scorer, then save both",
				Action: trainCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "trees",
						Usage: "Number of trees in the probabilistic forest",
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "Random seed for deterministic training",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search for products matching a query",
				ArgsUsage: "[query]",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "prob",
						Aliases: []string{"p"},
						Usage:   "Use the probabilistic scorer instead of the fast matcher",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of candidates to return",
					},
					&cli.BoolFlag{
						Name:    "interactive",
						Aliases: []string{"i"},
						Usage:   "Read queries from stdin until EOF",
					},
				},
			},
			{
				Name:      "add",
				Usage:     "Add a single training example",
				ArgsUsage: "<query> <order-code> <description>",
				Action:    addCommand,
			},
			{
				Name:   "validate",
				Usage:  "Replay stored training queries and report ranking accuracy",
				Action: validateCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "prob",
						Aliases: []string{"p"},
						Usage:   "Validate the probabilistic scorer instead of the fast matcher",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of candidates to request per query",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N queries",
						Value: 100,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads configuration and wires the default logger. Command-line
// flags take precedence over config file and environment values.
func setup(c *cli.Context) error {
	loaded, err := config.Load(slog.Default())
	if err != nil {
		return err
	}
	cfg = loaded

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if c.IsSet("db") {
		cfg.DataDir = c.String("db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	return nil
}

func openDatabase() (*prodmatch.Database, error) {
	var opts []prodmatch.DatabaseOption
	if cfg.InMemory {
		opts = append(opts, prodmatch.WithInMemoryStorage())
	}
	return prodmatch.NewDatabase(cfg.DataDir, opts...)
}

func topK(c *cli.Context) int {
	if c.IsSet("top-k") {
		return c.Int("top-k")
	}
	return cfg.TopK
}

func importCommand(c *cli.Context) error {
	trainingDir := c.String("training-dir")
	trainingFile := c.String("training-file")
	catalogPath := c.String("catalog")
	if trainingDir == "" && trainingFile == "" && catalogPath == "" {
		return fmt.Errorf("nothing to import: provide --training-dir, --training-file or --catalog")
	}

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	ctx := context.Background()
	skipDuplicates := !c.Bool("keep-duplicates")

	if trainingFile != "" {
		result, err := pipeline.ImportTrainingFile(ctx, trainingFile, skipDuplicates)
		if err != nil {
			return fmt.Errorf("training import failed: %w", err)
		}
		fmt.Printf("Imported %s: %d added, %d duplicates\n",
			trainingFile, result.Added, result.Duplicates)
	}

	if trainingDir != "" {
		report, err := pipeline.ImportTrainingDir(ctx, trainingDir, skipDuplicates)
		if err != nil {
			return fmt.Errorf("training import failed: %w", err)
		}
		fmt.Printf("Imported %d files: %d added, %d duplicates\n",
			report.Files, report.Added, report.Duplicates)
	}

	if catalogPath != "" {
		n, err := pipeline.ImportCatalog(ctx, catalogPath)
		if err != nil {
			return fmt.Errorf("catalog import failed: %w", err)
		}
		fmt.Printf("Imported catalog: %d entries\n", n)
	}

	return nil
}

func trainCommand(c *cli.Context) error {
	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	matcher, err := db.NewMatcher(
		search.WithBlendWeights(cfg.TfidfWeight, cfg.FuzzyWeight),
	)
	if err != nil {
		return fmt.Errorf("failed to create matcher: %w", err)
	}
	if err := matcher.Rebuild(ctx); err != nil {
		return fmt.Errorf("failed to build fast matcher: %w", err)
	}
	if err := matcher.Save(ctx); err != nil {
		return fmt.Errorf("failed to save fast matcher: %w", err)
	}
	fmt.Printf("Fast matcher fitted over %d examples\n", matcher.Examples())

	trees := cfg.TreeCount
	if c.IsSet("trees") {
		trees = c.Int("trees")
	}
	seed := cfg.Seed
	if c.IsSet("seed") {
		seed = c.Int64("seed")
	}

	scorer, err := db.NewScorer(
		scoring.WithTreeCount(trees),
		scoring.WithSeed(seed),
		scorerPoolOption(),
	)
	if err != nil {
		return fmt.Errorf("failed to create scorer: %w", err)
	}
	defer scorer.Release()

	report, err := scorer.Train(ctx)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	if err := scorer.Save(ctx); err != nil {
		return fmt.Errorf("failed to save scorer: %w", err)
	}

	fmt.Printf("Scorer trained on %d samples (%d positive, %d negative)\n",
		report.Samples, report.Positives, report.Negatives)
	fmt.Printf("Train R²: %.4f  Test R²: %.4f\n", report.TrainScore, report.TestScore)
	return nil
}

func scorerPoolOption() scoring.Option {
	if cfg.PoolSize > 0 {
		return scoring.WithPoolSize(cfg.PoolSize)
	}
	return func(*scoring.Scorer) error { return nil }
}

func searchCommand(c *cli.Context) error {
	if !c.Bool("interactive") && c.NArg() == 0 {
		return fmt.Errorf("query is required (or use --interactive)")
	}

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	searchFn, release, err := loadSearchFunc(ctx, db, c.Bool("prob"))
	if err != nil {
		return err
	}
	defer release()

	k := topK(c)

	if c.Bool("interactive") {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("query> ")
		for scanner.Scan() {
			query := strings.TrimSpace(scanner.Text())
			if query == "" {
				fmt.Print("query> ")
				continue
			}
			results, err := searchFn(query, k)
			if err != nil {
				return err
			}
			printResults(results)
			fmt.Print("query> ")
		}
		fmt.Println()
		return scanner.Err()
	}

	query := strings.Join(c.Args().Slice(), " ")
	results, err := searchFn(query, k)
	if err != nil {
		return err
	}
	printResults(results)
	return nil
}

// loadSearchFunc loads the persisted model for the requested engine and
// adapts it to a single search signature. Falls back to fitting from the
// stored training data when no model has been saved yet.
func loadSearchFunc(ctx context.Context, db *prodmatch.Database, probabilistic bool) (validate.SearchFunc, func(), error) {
	if probabilistic {
		scorer, err := db.NewScorer(scorerPoolOption())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create scorer: %w", err)
		}
		if err := scorer.Load(ctx); err != nil {
			slog.Warn("no saved scorer model, training from stored data", "err", err)
			if _, err := scorer.Train(ctx); err != nil {
				scorer.Release()
				return nil, nil, fmt.Errorf("training failed: %w", err)
			}
		}
		return scorer.Search, scorer.Release, nil
	}

	matcher, err := db.NewMatcher(
		search.WithBlendWeights(cfg.TfidfWeight, cfg.FuzzyWeight),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create matcher: %w", err)
	}
	if err := matcher.Load(ctx); err != nil {
		slog.Warn("no saved fast model, rebuilding from stored data", "err", err)
		if err := matcher.Rebuild(ctx); err != nil {
			return nil, nil, fmt.Errorf("rebuild failed: %w", err)
		}
	}
	searchFn := func(query string, topK int) ([]core.ScoredResult, error) {
		return matcher.SearchFast(query, topK), nil
	}
	return searchFn, func() {}, nil
}

func printResults(results []core.ScoredResult) {
	if len(results) == 0 {
		fmt.Println("No matches found")
		return
	}
	for i, r := range results {
		marker := ""
		if r.MatchType == core.MatchTypeExact {
			marker = " [exact]"
		} else if r.TrainingBoosted {
			marker = " [boosted]"
		}
		fmt.Printf("%d: %s - %s [%.3f]%s\n",
			i+1, r.OrderCode, r.Description, r.Probability, marker)
	}
}

func addCommand(c *cli.Context) error {
	if c.NArg() != 3 {
		return fmt.Errorf("expected <query> <order-code> <description>")
	}

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	matcher, err := db.NewMatcher()
	if err != nil {
		return fmt.Errorf("failed to create matcher: %w", err)
	}
	if err := matcher.Load(ctx); err != nil {
		if err := matcher.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}
	}

	args := c.Args().Slice()
	if err := matcher.AddTrainingExample(ctx, args[0], args[1], args[2]); err != nil {
		return fmt.Errorf("failed to add training example: %w", err)
	}
	if err := matcher.Save(ctx); err != nil {
		return fmt.Errorf("failed to save fast matcher: %w", err)
	}

	// A persisted scorer carries its own copy of the training set for the
	// boost table; refresh and re-save it so the new example is seen
	// without a full retrain.
	scorer, err := db.NewScorer(scorerPoolOption())
	if err != nil {
		return fmt.Errorf("failed to create scorer: %w", err)
	}
	defer scorer.Release()
	switch err := scorer.Load(ctx); {
	case err == nil:
		if err := scorer.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to refresh scorer: %w", err)
		}
		if err := scorer.Save(ctx); err != nil {
			return fmt.Errorf("failed to save scorer: %w", err)
		}
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("failed to load scorer: %w", err)
	}

	fmt.Printf("Added %q -> %s (%d examples total)\n", args[0], args[1], matcher.Examples())
	return nil
}

func validateCommand(c *cli.Context) error {
	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	searchFn, release, err := loadSearchFunc(ctx, db, c.Bool("prob"))
	if err != nil {
		return err
	}
	defer release()

	validatorConfig := &validate.Config{
		TopK:           topK(c),
		ReportInterval: c.Int("report-interval"),
	}
	if validatorConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	validator, err := db.NewValidator(searchFn, validatorConfig, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}

	if _, err := validator.Run(ctx); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
