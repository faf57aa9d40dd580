package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/prodmatch/core"
	"github.com/poiesic/prodmatch/storage"
)

// Pipeline imports training data and product catalogs from CSV files.
type Pipeline struct {
	trainingRepo storage.TrainingRepository
	catalogRepo  storage.CatalogRepository
	parsePool    *ants.Pool
	logger       *slog.Logger
}

// Report summarises a directory import.
type Report struct {
	Files      int
	Added      int
	Duplicates int
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent CSV parsing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.parsePool != nil {
			p.parsePool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.parsePool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithCatalogRepository enables catalog imports.
func WithCatalogRepository(catalogRepo storage.CatalogRepository) Option {
	return func(p *Pipeline) error {
		p.catalogRepo = catalogRepo
		return nil
	}
}

// NewPipeline creates a new import pipeline.
func NewPipeline(trainingRepo storage.TrainingRepository, opts ...Option) (*Pipeline, error) {
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

	p := &Pipeline{
		trainingRepo: trainingRepo,
		parsePool:    pool,
		logger:       slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.parsePool != nil {
		p.parsePool.Release()
	}
}

// ImportTrainingFile parses one CSV file and bulk-inserts its examples.
func (p *Pipeline) ImportTrainingFile(ctx context.Context, path string, skipDuplicates bool) (*storage.BulkInsertResult, error) {
	examples, err := p.parseFile(path)
	if err != nil {
		return nil, err
	}

	result, err := p.trainingRepo.BulkInsert(ctx, examples, skipDuplicates)
	if err != nil {
		return nil, fmt.Errorf("inserting training examples from %s: %w", path, err)
	}

	p.logger.Info("imported training file",
		"path", path, "added", result.Added, "duplicates", result.Duplicates)
	return result, nil
}

// ImportTrainingDir imports every .csv file in the directory. Files are
// parsed concurrently; inserts run in file-name order so repeated imports
// of the same directory produce the same insertion order.
func (p *Pipeline) ImportTrainingDir(ctx context.Context, dir string, skipDuplicates bool) (*Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading training directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	parsed := make([][]*core.TrainingExample, len(paths))
	parseErrs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		i, path := i, path
		wg.Add(1)
		task := func() {
			defer wg.Done()
			parsed[i], parseErrs[i] = p.parseFile(path)
		}
		if err := p.parsePool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	report := &Report{}
	for i, path := range paths {
		if parseErrs[i] != nil {
			return nil, parseErrs[i]
		}

		result, err := p.trainingRepo.BulkInsert(ctx, parsed[i], skipDuplicates)
		if err != nil {
			return nil, fmt.Errorf("inserting training examples from %s: %w", path, err)
		}
		report.Files++
		report.Added += result.Added
		report.Duplicates += result.Duplicates
	}

	p.logger.Info("imported training directory",
		"dir", dir, "files", report.Files,
		"added", report.Added, "duplicates", report.Duplicates)
	return report, nil
}

// ImportCatalog parses a catalog CSV and replaces the stored catalog.
func (p *Pipeline) ImportCatalog(ctx context.Context, path string) (int, error) {
	if p.catalogRepo == nil {
		return 0, ErrCatalogRepositoryRequired
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()

	catalog, err := ParseCatalogCSV(f)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := p.catalogRepo.Replace(ctx, catalog); err != nil {
		return 0, fmt.Errorf("replacing catalog: %w", err)
	}

	p.logger.Info("imported product catalog", "path", path, "entries", len(catalog))
	return len(catalog), nil
}

func (p *Pipeline) parseFile(path string) ([]*core.TrainingExample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening training file: %w", err)
	}
	defer f.Close()

	examples, err := ParseTrainingCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return examples, nil
}
