package ingest

import "errors"

var (
	// ErrTrainingRepositoryRequired is returned when a training repository is not provided.
	ErrTrainingRepositoryRequired = errors.New("training repository required")

	// ErrCatalogRepositoryRequired is returned when a catalog import is
	// attempted without a catalog repository.
	ErrCatalogRepositoryRequired = errors.New("catalog repository required")

	// ErrMissingColumns is returned when a CSV file lacks the expected
	// header columns.
	ErrMissingColumns = errors.New("missing expected CSV columns")
)
