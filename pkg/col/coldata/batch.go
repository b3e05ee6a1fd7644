// Copyright 2024 The Vecflow Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package coldata exposes the batch of columnar data that flows between
// operators. A batch is immutable once handed to a downstream operator; the
// receiver takes ownership.
package coldata

import "github.com/vecflow/vecflow/pkg/col/coltypes"

// defaultBatchSize is the target number of rows per batch.
const defaultBatchSize = 1024

// BatchSize returns the maximum number of rows a batch produced by an
// operator will contain.
func BatchSize() int { return defaultBatchSize }

// ZeroBatch is the zero-length batch every operator returns once its stream
// is exhausted. Callers must only inspect its length.
var ZeroBatch = &Batch{}

// Batch is an ordered set of Vecs of equal length, the unit of data flow
// between operators.
type Batch struct {
	vecs   []*Vec
	length int
}

// NewBatch returns an empty batch over the given column kinds with capacity
// for BatchSize() rows.
func NewBatch(types []coltypes.T) *Batch {
	return NewBatchWithCapacity(types, BatchSize())
}

// NewBatchWithCapacity returns an empty batch over the given column kinds
// with the given row capacity.
func NewBatchWithCapacity(types []coltypes.T, capacity int) *Batch {
	vecs := make([]*Vec, len(types))
	for i, t := range types {
		vecs[i] = NewVec(t, capacity)
	}
	return &Batch{vecs: vecs}
}

// Width returns the number of columns.
func (b *Batch) Width() int { return len(b.vecs) }

// ColVec returns the i-th column.
func (b *Batch) ColVec(i int) *Vec { return b.vecs[i] }

// Length returns the number of rows.
func (b *Batch) Length() int { return b.length }

// SetLength truncates the batch to n rows. n must not exceed the current
// length.
func (b *Batch) SetLength(n int) {
	if n > b.length {
		panic("SetLength may only shrink a batch")
	}
	for _, v := range b.vecs {
		v.truncate(n)
	}
	b.length = n
}

// AppendRows appends rows src[start:end] to b.
func (b *Batch) AppendRows(src *Batch, start, end int) {
	for i, v := range b.vecs {
		v.AppendRange(src.vecs[i], start, end)
	}
	b.length += end - start
}

// SetRowCount declares the row count after values were appended directly to
// the column Vecs.
func (b *Batch) SetRowCount(n int) { b.length = n }

// Shuffle reorders the rows of b according to the selection permutation:
// row i of the result is row sels[i] of the input.
func (b *Batch) Shuffle(sels []int) {
	for i, v := range b.vecs {
		nv := NewVec(v.Type(), len(sels))
		nv.gather(v, sels)
		b.vecs[i] = nv
	}
	b.length = len(sels)
}

// MemSize returns an estimate of the memory footprint of the batch in bytes.
func (b *Batch) MemSize() int64 {
	var size int64
	for _, v := range b.vecs {
		size += v.MemSize()
	}
	return size
}

// Types returns the column kinds of the batch.
func (b *Batch) Types() []coltypes.T {
	types := make([]coltypes.T, len(b.vecs))
	for i, v := range b.vecs {
		types[i] = v.Type()
	}
	return types
}
