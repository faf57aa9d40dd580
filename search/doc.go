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


// Package search provides the fast hybrid product matcher.
//
// The Matcher type implements a two-pass ranking algorithm that combines:
//   - Exact matching of the normalized query against training queries
//   - Lexical retrieval over a TF-IDF vector space with cosine similarity
//   - Fuzzy string refinement of the lexical candidates
//
// Results from both passes are merged, deduplicated by order code (an exact
// match always wins over a fuzzy one for the same code) and truncated to the
// requested size. The matcher serves reads from an immutable snapshot that
// pairs every index row with its training example; training-set changes
// rebuild the snapshot wholesale and publish it atomically.
package search
