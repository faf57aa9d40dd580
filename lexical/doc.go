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


// Package lexical provides a TF-IDF vector space over training queries.
//
// An Index is fitted once over an ordered sequence of queries and is
// immutable afterwards: vocabulary (word 1- and 2-grams, capped at a maximum
// feature count, English stop words removed), smoothed inverse document
// frequencies, and one L2-normalised sparse row per input query. Any change
// to the underlying query set requires a full rebuild; sparse vectors
// produced against an earlier build are invalid after a rebuild.
package lexical
