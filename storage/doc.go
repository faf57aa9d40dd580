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


// Package storage defines the persistence interfaces of the matching engine
// and the binary serialization of its records and model artifacts.
//
// Three repositories are defined: TrainingRepository (the append/delete-only
// set of training examples, listed in stable insertion order),
// CatalogRepository (the replaceable product catalog, listed in load order)
// and ModelRepository (opaque fitted-model bundles for the fast matcher and
// the probabilistic scorer). Implementations must be thread-safe.
//
// Serialization uses the MUS format; every persisted type has a hand-written
// serializer in serialization.go.
package storage
