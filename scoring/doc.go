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


// Package scoring implements the probabilistic ranking path of the matching
// engine: a random-forest regression model over string-similarity features,
// trained on historical customer queries with negatively sampled
// counter-examples.
//
// A Scorer owns the fitted model, its feature scaler and the catalog it
// ranks over, published together as one immutable state value. Search walks
// the whole catalog, predicts a match probability per entry and applies a
// boost for entries whose order code appears in training examples closely
// matching the query. Train refits the model; example or catalog changes
// alone only require Refresh.
package scoring
