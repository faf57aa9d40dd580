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


package core

import (
	"fmt"
	"strings"
)

// ValidateTrainingExample validates a TrainingExample according to domain rules.
//
// Validation rules:
//   - CustomerQuery must not be empty or whitespace-only
//   - OrderCode must not be empty
//   - Description must not be empty
//
// NOT validated:
//   - ID (0 is valid from database sequences)
//   - Uniqueness of (CustomerQuery, OrderCode); duplicates are allowed at
//     this layer and handled during ranking
func ValidateTrainingExample(example *TrainingExample) error {
	if example == nil {
		return fmt.Errorf("%w: example is nil", ErrInvalidTrainingExample)
	}

	if strings.TrimSpace(example.CustomerQuery) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTrainingExample, ErrEmptyQuery)
	}

	if strings.TrimSpace(example.OrderCode) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTrainingExample, ErrEmptyOrderCode)
	}

	if strings.TrimSpace(example.Description) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTrainingExample, ErrEmptyDescription)
	}

	return nil
}

// ValidateCatalogEntry validates a CatalogEntry according to domain rules.
//
// Validation rules:
//   - OrderCode must not be empty
//   - Description must not be empty
func ValidateCatalogEntry(entry *CatalogEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidCatalogEntry)
	}

	if strings.TrimSpace(entry.OrderCode) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCatalogEntry, ErrEmptyOrderCode)
	}

	if strings.TrimSpace(entry.Description) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCatalogEntry, ErrEmptyDescription)
	}

	return nil
}
