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


package storage

import (
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/prodmatch/core"
)

// Serializers are hand-written rather than generated: the sparse rows and
// tree arrays of the model bundles have no natural struct shape for the
// generator, and keeping every persisted field explicit here documents the
// artifact format in one place.

// MarshalTrainingExample serializes a TrainingExample to bytes.
func MarshalTrainingExample(example *core.TrainingExample) []byte {
	buf := make([]byte, TrainingExampleMUS.Size(*example))
	TrainingExampleMUS.Marshal(*example, buf)
	return buf
}

// UnmarshalTrainingExample deserializes a TrainingExample from bytes.
func UnmarshalTrainingExample(data []byte) (*core.TrainingExample, error) {
	example, _, err := TrainingExampleMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &example, nil
}

// MarshalCatalogEntry serializes a CatalogEntry to bytes.
func MarshalCatalogEntry(entry *core.CatalogEntry) []byte {
	buf := make([]byte, CatalogEntryMUS.Size(*entry))
	CatalogEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalCatalogEntry deserializes a CatalogEntry from bytes.
func UnmarshalCatalogEntry(data []byte) (*core.CatalogEntry, error) {
	entry, _, err := CatalogEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	return core.ID(id), err
}

// MarshalFastModelBundle serializes a FastModelBundle to bytes.
func MarshalFastModelBundle(bundle *FastModelBundle) []byte {
	buf := make([]byte, FastModelBundleMUS.Size(*bundle))
	FastModelBundleMUS.Marshal(*bundle, buf)
	return buf
}

// UnmarshalFastModelBundle deserializes a FastModelBundle from bytes.
func UnmarshalFastModelBundle(data []byte) (*FastModelBundle, error) {
	bundle, _, err := FastModelBundleMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// MarshalScorerModelBundle serializes a ScorerModelBundle to bytes.
func MarshalScorerModelBundle(bundle *ScorerModelBundle) []byte {
	buf := make([]byte, ScorerModelBundleMUS.Size(*bundle))
	ScorerModelBundleMUS.Marshal(*bundle, buf)
	return buf
}

// UnmarshalScorerModelBundle deserializes a ScorerModelBundle from bytes.
func UnmarshalScorerModelBundle(data []byte) (*ScorerModelBundle, error) {
	bundle, _, err := ScorerModelBundleMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// checkCount validates a decoded element count against the remaining
// input. Every element occupies at least one byte, so a count beyond the
// remaining bytes means the data was cut short or the length prefix is
// corrupt.
func checkCount(count, remaining int) error {
	if count < 0 || count > remaining {
		return ErrTruncatedData
	}
	return nil
}

// TrainingExampleMUS is the MUS serializer for core.TrainingExample.
var TrainingExampleMUS = trainingExampleMUS{}

type trainingExampleMUS struct{}

func (trainingExampleMUS) Marshal(v core.TrainingExample, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.CustomerQuery, bs[n:])
	n += ord.String.Marshal(v.OrderCode, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += varint.Int64.Marshal(v.InsertedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (trainingExampleMUS) Unmarshal(bs []byte) (v core.TrainingExample, n int, err error) {
	var (
		id                uint64
		inserted, updated int64
		n1                int
	)
	if id, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	v.Id = core.ID(id)
	if v.CustomerQuery, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.OrderCode, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Description, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if inserted, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if updated, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.InsertedAt = time.UnixMicro(inserted).UTC()
	v.UpdatedAt = time.UnixMicro(updated).UTC()
	return v, n, nil
}

func (trainingExampleMUS) Size(v core.TrainingExample) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.CustomerQuery)
	size += ord.String.Size(v.OrderCode)
	size += ord.String.Size(v.Description)
	size += varint.Int64.Size(v.InsertedAt.UnixMicro())
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return size
}

// CatalogEntryMUS is the MUS serializer for core.CatalogEntry.
var CatalogEntryMUS = catalogEntryMUS{}

type catalogEntryMUS struct{}

func (catalogEntryMUS) Marshal(v core.CatalogEntry, bs []byte) (n int) {
	n = ord.String.Marshal(v.OrderCode, bs)
	n += ord.String.Marshal(v.Description, bs[n:])
	return n
}

func (catalogEntryMUS) Unmarshal(bs []byte) (v core.CatalogEntry, n int, err error) {
	var n1 int
	if v.OrderCode, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Description, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	return v, n + n1, nil
}

func (catalogEntryMUS) Size(v core.CatalogEntry) (size int) {
	return ord.String.Size(v.OrderCode) + ord.String.Size(v.Description)
}

// FastModelBundleMUS is the MUS serializer for FastModelBundle.
var FastModelBundleMUS = fastModelBundleMUS{}

type fastModelBundleMUS struct{}

func (fastModelBundleMUS) Marshal(v FastModelBundle, bs []byte) (n int) {
	n = marshalStringSlice(v.Terms, bs)
	n += marshalFloatSlice(v.IDF, bs[n:])
	n += varint.Int.Marshal(len(v.Examples), bs[n:])
	for i := range v.Examples {
		n += TrainingExampleMUS.Marshal(v.Examples[i], bs[n:])
	}
	n += varint.Int.Marshal(len(v.Rows), bs[n:])
	for i := range v.Rows {
		n += marshalSparseRow(v.Rows[i], bs[n:])
	}
	return n
}

func (fastModelBundleMUS) Unmarshal(bs []byte) (v FastModelBundle, n int, err error) {
	var n1 int
	if v.Terms, n, err = unmarshalStringSlice(bs); err != nil {
		return
	}
	if v.IDF, n1, err = unmarshalFloatSlice(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1

	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if err = checkCount(count, len(bs)-n); err != nil {
		return v, n, err
	}
	v.Examples = make([]core.TrainingExample, count)
	for i := 0; i < count; i++ {
		if v.Examples[i], n1, err = TrainingExampleMUS.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}

	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if err = checkCount(count, len(bs)-n); err != nil {
		return v, n, err
	}
	v.Rows = make([]map[int]float64, count)
	for i := 0; i < count; i++ {
		if v.Rows[i], n1, err = unmarshalSparseRow(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}
	return v, n, nil
}

func (fastModelBundleMUS) Size(v FastModelBundle) (size int) {
	size = sizeStringSlice(v.Terms)
	size += sizeFloatSlice(v.IDF)
	size += varint.Int.Size(len(v.Examples))
	for i := range v.Examples {
		size += TrainingExampleMUS.Size(v.Examples[i])
	}
	size += varint.Int.Size(len(v.Rows))
	for i := range v.Rows {
		size += sizeSparseRow(v.Rows[i])
	}
	return size
}

// ScorerModelBundleMUS is the MUS serializer for ScorerModelBundle.
var ScorerModelBundleMUS = scorerModelBundleMUS{}

type scorerModelBundleMUS struct{}

func (scorerModelBundleMUS) Marshal(v ScorerModelBundle, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v.Forest.Trees), bs)
	for i := range v.Forest.Trees {
		n += marshalTree(v.Forest.Trees[i], bs[n:])
	}
	n += varint.Int.Marshal(v.Forest.FeatureCount, bs[n:])
	n += marshalFloatSlice(v.Scaler.Mean, bs[n:])
	n += marshalFloatSlice(v.Scaler.Scale, bs[n:])
	n += varint.Int.Marshal(len(v.Catalog), bs[n:])
	for i := range v.Catalog {
		n += CatalogEntryMUS.Marshal(v.Catalog[i], bs[n:])
	}
	n += varint.Int.Marshal(len(v.Examples), bs[n:])
	for i := range v.Examples {
		n += TrainingExampleMUS.Marshal(v.Examples[i], bs[n:])
	}
	n += ord.Bool.Marshal(v.Trained, bs[n:])
	n += varint.Int64.Marshal(v.Seed, bs[n:])
	return n
}

func (scorerModelBundleMUS) Unmarshal(bs []byte) (v ScorerModelBundle, n int, err error) {
	var (
		count, n1 int
	)
	if count, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if err = checkCount(count, len(bs)-n); err != nil {
		return
	}
	v.Forest.Trees = make([]TreeModel, count)
	for i := 0; i < count; i++ {
		if v.Forest.Trees[i], n1, err = unmarshalTree(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}
	if v.Forest.FeatureCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Scaler.Mean, n1, err = unmarshalFloatSlice(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Scaler.Scale, n1, err = unmarshalFloatSlice(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1

	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if err = checkCount(count, len(bs)-n); err != nil {
		return v, n, err
	}
	v.Catalog = make([]core.CatalogEntry, count)
	for i := 0; i < count; i++ {
		if v.Catalog[i], n1, err = CatalogEntryMUS.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}

	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if err = checkCount(count, len(bs)-n); err != nil {
		return v, n, err
	}
	v.Examples = make([]core.TrainingExample, count)
	for i := 0; i < count; i++ {
		if v.Examples[i], n1, err = TrainingExampleMUS.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}

	if v.Trained, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Seed, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	return v, n + n1, nil
}

func (scorerModelBundleMUS) Size(v ScorerModelBundle) (size int) {
	size = varint.Int.Size(len(v.Forest.Trees))
	for i := range v.Forest.Trees {
		size += sizeTree(v.Forest.Trees[i])
	}
	size += varint.Int.Size(v.Forest.FeatureCount)
	size += sizeFloatSlice(v.Scaler.Mean)
	size += sizeFloatSlice(v.Scaler.Scale)
	size += varint.Int.Size(len(v.Catalog))
	for i := range v.Catalog {
		size += CatalogEntryMUS.Size(v.Catalog[i])
	}
	size += varint.Int.Size(len(v.Examples))
	for i := range v.Examples {
		size += TrainingExampleMUS.Size(v.Examples[i])
	}
	size += ord.Bool.Size(v.Trained)
	size += varint.Int64.Size(v.Seed)
	return size
}

func marshalTree(t TreeModel, bs []byte) (n int) {
	n = varint.Int.Marshal(len(t.Nodes), bs)
	for i := range t.Nodes {
		node := &t.Nodes[i]
		n += varint.Int.Marshal(node.Feature, bs[n:])
		n += raw.Float64.Marshal(node.Threshold, bs[n:])
		n += varint.Int.Marshal(node.Left, bs[n:])
		n += varint.Int.Marshal(node.Right, bs[n:])
		n += raw.Float64.Marshal(node.Value, bs[n:])
		n += ord.Bool.Marshal(node.Leaf, bs[n:])
	}
	return n
}

func unmarshalTree(bs []byte) (t TreeModel, n int, err error) {
	var count, n1 int
	if count, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if err = checkCount(count, len(bs)-n); err != nil {
		return
	}
	t.Nodes = make([]TreeNode, count)
	for i := 0; i < count; i++ {
		node := &t.Nodes[i]
		if node.Feature, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return t, n + n1, err
		}
		n += n1
		if node.Threshold, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
			return t, n + n1, err
		}
		n += n1
		if node.Left, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return t, n + n1, err
		}
		n += n1
		if node.Right, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return t, n + n1, err
		}
		n += n1
		if node.Value, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
			return t, n + n1, err
		}
		n += n1
		if node.Leaf, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
			return t, n + n1, err
		}
		n += n1
	}
	return t, n, nil
}

func sizeTree(t TreeModel) (size int) {
	size = varint.Int.Size(len(t.Nodes))
	for i := range t.Nodes {
		node := &t.Nodes[i]
		size += varint.Int.Size(node.Feature)
		size += raw.Float64.Size(node.Threshold)
		size += varint.Int.Size(node.Left)
		size += varint.Int.Size(node.Right)
		size += raw.Float64.Size(node.Value)
		size += ord.Bool.Size(node.Leaf)
	}
	return size
}

func marshalStringSlice(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStringSlice(bs []byte) (v []string, n int, err error) {
	var count, n1 int
	if count, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if err = checkCount(count, len(bs)-n); err != nil {
		return
	}
	v = make([]string, count)
	for i := 0; i < count; i++ {
		if v[i], n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}
	return v, n, nil
}

func sizeStringSlice(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalFloatSlice(v []float64, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float64.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalFloatSlice(bs []byte) (v []float64, n int, err error) {
	var count, n1 int
	if count, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if err = checkCount(count, len(bs)-n); err != nil {
		return
	}
	v = make([]float64, count)
	for i := 0; i < count; i++ {
		if v[i], n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
	}
	return v, n, nil
}

func sizeFloatSlice(v []float64) (size int) {
	size = varint.Int.Size(len(v))
	size += len(v) * raw.Float64.Size(0)
	return size
}

// marshalSparseRow writes map entries in ascending column order so the
// serialized form is deterministic.
func marshalSparseRow(row map[int]float64, bs []byte) (n int) {
	cols := make([]int, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	n = varint.Int.Marshal(len(cols), bs)
	for _, col := range cols {
		n += varint.Int.Marshal(col, bs[n:])
		n += raw.Float64.Marshal(row[col], bs[n:])
	}
	return n
}

func unmarshalSparseRow(bs []byte) (row map[int]float64, n int, err error) {
	var count, n1 int
	if count, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if err = checkCount(count, len(bs)-n); err != nil {
		return
	}
	row = make(map[int]float64, count)
	for i := 0; i < count; i++ {
		var col int
		var w float64
		if col, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
			return row, n + n1, err
		}
		n += n1
		if w, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
			return row, n + n1, err
		}
		n += n1
		row[col] = w
	}
	return row, n, nil
}

func sizeSparseRow(row map[int]float64) (size int) {
	size = varint.Int.Size(len(row))
	for col := range row {
		size += varint.Int.Size(col)
		size += raw.Float64.Size(0)
	}
	return size
}
