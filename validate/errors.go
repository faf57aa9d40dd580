package validate

import "errors"

var (
	// ErrSearchFuncRequired is returned when no search function is provided
	ErrSearchFuncRequired = errors.New("search function is required")

	// ErrTrainingRepositoryRequired is returned when no training repository is provided
	ErrTrainingRepositoryRequired = errors.New("training repository is required")
)
