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

package exec

import (
	"context"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/col/coltypes"
	"github.com/vecflow/vecflow/pkg/exec/execerror"
	"github.com/vecflow/vecflow/pkg/exec/execop"
)

// batchSource emits the rows of an in-memory batch in batch-sized windows.
// It stands in for scan connectors, which are outside this core.
type batchSource struct {
	schema coldata.Schema
	data   *coldata.Batch
	pos    int
}

var _ execop.Operator = &batchSource{}

// NewBatchSource returns a source emitting the rows of data.
func NewBatchSource(schema coldata.Schema, data *coldata.Batch) (execop.Operator, error) {
	if len(schema) != data.Width() {
		return nil, execerror.Configf(
			"source schema %s has %d columns, data has %d", schema, len(schema), data.Width(),
		)
	}
	for i, c := range schema {
		if data.ColVec(i).Type() != c.T {
			return nil, execerror.Configf(
				"source column %s is %s, data column %d is %s",
				c.Name, c.T, i, data.ColVec(i).Type(),
			)
		}
	}
	return &batchSource{schema: schema, data: data}, nil
}

// NewInt64Series returns a single-column source over the given values.
func NewInt64Series(name string, vals []int64) execop.Operator {
	v := coldata.NewVec(coltypes.Int64, len(vals))
	for _, x := range vals {
		v.AppendInt64(x)
	}
	data := coldata.NewBatchWithCapacity([]coltypes.T{coltypes.Int64}, len(vals))
	data.ColVec(0).AppendRange(v, 0, len(vals))
	data.SetRowCount(len(vals))
	src, err := NewBatchSource(coldata.Schema{{Name: name, T: coltypes.Int64}}, data)
	if err != nil {
		panic(err)
	}
	return src
}

func (s *batchSource) Init(context.Context) error { return nil }

func (s *batchSource) Schema() coldata.Schema { return s.schema }

func (s *batchSource) Next(_ context.Context, remaining int) (*coldata.Batch, error) {
	n := s.data.Length() - s.pos
	if n <= 0 || remaining <= 0 {
		return coldata.ZeroBatch, nil
	}
	if n > coldata.BatchSize() {
		n = coldata.BatchSize()
	}
	if n > remaining {
		n = remaining
	}
	out := coldata.NewBatchWithCapacity(s.schema.Types(), n)
	out.AppendRows(s.data, s.pos, s.pos+n)
	s.pos += n
	return out, nil
}

func (s *batchSource) Close(context.Context) error { return nil }

// rangeSource lazily emits the integers [0, n) as one int64 column.
type rangeSource struct {
	schema coldata.Schema
	n      int64
	pos    int64
}

var _ execop.Operator = &rangeSource{}

// NewRange returns a source emitting 0, 1, ..., n-1 under the given column
// name.
func NewRange(name string, n int64) execop.Operator {
	return &rangeSource{
		schema: coldata.Schema{{Name: name, T: coltypes.Int64}},
		n:      n,
	}
}

func (s *rangeSource) Init(context.Context) error { return nil }

func (s *rangeSource) Schema() coldata.Schema { return s.schema }

func (s *rangeSource) Next(_ context.Context, remaining int) (*coldata.Batch, error) {
	n := s.n - s.pos
	if n <= 0 || remaining <= 0 {
		return coldata.ZeroBatch, nil
	}
	if n > int64(coldata.BatchSize()) {
		n = int64(coldata.BatchSize())
	}
	if n > int64(remaining) {
		n = int64(remaining)
	}
	out := coldata.NewBatchWithCapacity(s.schema.Types(), int(n))
	v := out.ColVec(0)
	for i := int64(0); i < n; i++ {
		v.AppendInt64(s.pos + i)
	}
	out.SetRowCount(int(n))
	s.pos += n
	return out, nil
}

func (s *rangeSource) Close(context.Context) error { return nil }
