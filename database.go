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


package prodmatch

import (
	"io"
	"log/slog"

	"github.com/poiesic/prodmatch/ingest"
	"github.com/poiesic/prodmatch/scoring"
	"github.com/poiesic/prodmatch/search"
	"github.com/poiesic/prodmatch/storage"
	"github.com/poiesic/prodmatch/storage/badger"
	"github.com/poiesic/prodmatch/validate"
)

type Database struct {
	backend      *badger.Backend
	trainingRepo storage.TrainingRepository
	catalogRepo  storage.CatalogRepository
	modelRepo    storage.ModelRepository
	logger       *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	inMemory bool
	logger   *slog.Logger
}

// WithInMemoryStorage runs the database without persistence.
func WithInMemoryStorage() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithDatabaseLogger sets a custom logger.
// Default is slog.Default().
func WithDatabaseLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create training repository
	trainingRepo, err := badger.NewTrainingRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create catalog and model repositories
	catalogRepo := badger.NewCatalogRepository(backend)
	modelRepo := badger.NewModelRepository(backend)

	return &Database{
		backend:      backend,
		trainingRepo: trainingRepo,
		catalogRepo:  catalogRepo,
		modelRepo:    modelRepo,
		logger:       options.logger,
	}, nil
}

func (db *Database) Close() error {
	// Close repositories
	if err := db.trainingRepo.Close(); err != nil {
		db.logger.Error("error closing training repository", "err", err)
		return err
	}
	if err := db.catalogRepo.Close(); err != nil {
		db.logger.Error("error closing catalog repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) TrainingRepository() storage.TrainingRepository {
	return db.trainingRepo
}

func (db *Database) CatalogRepository() storage.CatalogRepository {
	return db.catalogRepo
}

func (db *Database) ModelRepository() storage.ModelRepository {
	return db.modelRepo
}

// NewMatcher creates a fast matcher wired to this database. The model
// repository is attached so fitted state can be saved and loaded.
func (db *Database) NewMatcher(opts ...search.Option) (*search.Matcher, error) {
	merged := append([]search.Option{
		search.WithModelRepository(db.modelRepo),
		search.WithLogger(db.logger),
	}, opts...)
	return search.NewMatcher(db.trainingRepo, merged...)
}

// NewScorer creates a probabilistic scorer wired to this database.
func (db *Database) NewScorer(opts ...scoring.Option) (*scoring.Scorer, error) {
	merged := append([]scoring.Option{
		scoring.WithModelRepository(db.modelRepo),
		scoring.WithLogger(db.logger),
	}, opts...)
	return scoring.NewScorer(db.trainingRepo, db.catalogRepo, merged...)
}

// NewPipeline creates a CSV import pipeline wired to this database.
func (db *Database) NewPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	merged := append([]ingest.Option{
		ingest.WithCatalogRepository(db.catalogRepo),
		ingest.WithLogger(db.logger),
	}, opts...)
	return ingest.NewPipeline(db.trainingRepo, merged...)
}

// NewValidator creates a validator that replays stored queries through
// the given search function.
func (db *Database) NewValidator(searchFn validate.SearchFunc, config *validate.Config, progress io.Writer) (*validate.Validator, error) {
	return validate.NewValidator(db.trainingRepo, searchFn, config, progress)
}
