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
	"container/heap"
	"context"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/col/coltypes"
	"github.com/vecflow/vecflow/pkg/colcontainer"
)

// runCursor is the head of one run during the merge: the batch currently
// loaded from the run and the offset of the next unconsumed row in it.
type runCursor struct {
	runIdx int
	run    *colcontainer.Run
	reader *colcontainer.RunReader
	batch  *coldata.Batch
	offset int
}

// runMerger performs a k-way merge over sorted runs. At each step it takes
// the row with the smallest key (largest, for descending order) among the
// runs' heads; ties go to the lowest run index, which preserves input order
// for equal keys because runs are created in input arrival order. Output is
// produced batch by batch; the merged result is never materialized whole.
// Runs are deleted as soon as they drain.
type runMerger struct {
	key     SortKey
	types   []coltypes.T
	cursors []*runCursor
}

func newRunMerger(
	ctx context.Context, runs []*colcontainer.Run, key SortKey, types []coltypes.T,
) (*runMerger, error) {
	m := &runMerger{key: key, types: types}
	for i, run := range runs {
		r, err := run.NewReader(ctx)
		if err != nil {
			_ = m.close()
			return nil, err
		}
		b, err := r.Next()
		if err != nil {
			_ = r.Close()
			_ = m.close()
			return nil, err
		}
		if b == nil || b.Length() == 0 {
			if err := r.Close(); err != nil {
				_ = m.close()
				return nil, err
			}
			if err := run.Close(); err != nil {
				_ = m.close()
				return nil, err
			}
			continue
		}
		m.cursors = append(m.cursors, &runCursor{runIdx: i, run: run, reader: r, batch: b})
	}
	heap.Init(m)
	return m, nil
}

// nextBatch returns up to n merged rows, or a zero batch once all runs are
// drained.
func (m *runMerger) nextBatch(n int) (*coldata.Batch, error) {
	if len(m.cursors) == 0 {
		return coldata.ZeroBatch, nil
	}
	out := coldata.NewBatchWithCapacity(m.types, n)
	for out.Length() < n && len(m.cursors) > 0 {
		c := m.cursors[0]
		out.AppendRows(c.batch, c.offset, c.offset+1)
		c.offset++
		if c.offset == c.batch.Length() {
			b, err := c.reader.Next()
			if err != nil {
				return nil, err
			}
			if b == nil || b.Length() == 0 {
				if err := c.reader.Close(); err != nil {
					return nil, err
				}
				if err := c.run.Close(); err != nil {
					return nil, err
				}
				heap.Pop(m)
				continue
			}
			c.batch, c.offset = b, 0
		}
		heap.Fix(m, 0)
	}
	return out, nil
}

func (m *runMerger) close() error {
	var firstErr error
	for _, c := range m.cursors {
		if c.reader != nil {
			if err := c.reader.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := c.run.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.cursors = nil
	return firstErr
}

// heap.Interface over the run cursors, ordered by current head row.

func (m *runMerger) Len() int { return len(m.cursors) }

func (m *runMerger) Less(i, j int) bool {
	a, b := m.cursors[i], m.cursors[j]
	cmp := coldata.CompareAt(
		a.batch.ColVec(m.key.ColIdx), a.offset,
		b.batch.ColVec(m.key.ColIdx), b.offset,
	)
	if cmp == 0 {
		return a.runIdx < b.runIdx
	}
	if m.key.Desc {
		return cmp > 0
	}
	return cmp < 0
}

func (m *runMerger) Swap(i, j int) {
	m.cursors[i], m.cursors[j] = m.cursors[j], m.cursors[i]
}

func (m *runMerger) Push(x interface{}) {
	m.cursors = append(m.cursors, x.(*runCursor))
}

func (m *runMerger) Pop() interface{} {
	c := m.cursors[len(m.cursors)-1]
	m.cursors = m.cursors[:len(m.cursors)-1]
	return c
}
