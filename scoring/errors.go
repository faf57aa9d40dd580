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


package scoring

import "errors"

var (
	// ErrNotTrained indicates a probabilistic operation was attempted
	// before a trained model exists. Callers must be able to distinguish
	// this from an empty result set.
	ErrNotTrained = errors.New("model not trained")

	// ErrCatalogRequired indicates that no catalog is available to rank.
	ErrCatalogRequired = errors.New("catalog required")

	// ErrNoTrainingData indicates that training was attempted with an
	// empty training set.
	ErrNoTrainingData = errors.New("no training data")

	// ErrTrainingRepositoryRequired indicates the scorer was constructed
	// without a training repository.
	ErrTrainingRepositoryRequired = errors.New("training repository is required")

	// ErrModelRepositoryRequired indicates Save or Load was called on a
	// scorer constructed without a model repository.
	ErrModelRepositoryRequired = errors.New("model repository is required")
)
