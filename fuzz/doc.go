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


// Package fuzz computes bounded string-similarity scores in [0, 100].
//
// Ratio is an indel-distance similarity over whole strings, PartialRatio
// aligns the shorter string against the best-matching window of the longer
// one, and TokenSortRatio/TokenSetRatio compare token multisets and sets
// independent of word order. Callers are expected to pass already-normalized
// strings (see core.Normalize) and divide by 100 where a [0, 1] score is
// needed.
package fuzz
