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

import "errors"

// Domain validation errors
var (
	// ErrInvalidTrainingExample indicates a TrainingExample failed validation.
	ErrInvalidTrainingExample = errors.New("invalid training example")

	// ErrInvalidCatalogEntry indicates a CatalogEntry failed validation.
	ErrInvalidCatalogEntry = errors.New("invalid catalog entry")

	// ErrEmptyQuery indicates the CustomerQuery field is empty.
	ErrEmptyQuery = errors.New("customer query cannot be empty")

	// ErrEmptyOrderCode indicates the OrderCode field is empty.
	ErrEmptyOrderCode = errors.New("order code cannot be empty")

	// ErrEmptyDescription indicates the Description field is empty.
	ErrEmptyDescription = errors.New("description cannot be empty")
)
