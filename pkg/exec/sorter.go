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
	"sort"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/colcontainer"
	"github.com/vecflow/vecflow/pkg/exec/execerror"
	"github.com/vecflow/vecflow/pkg/exec/execop"
)

// SortKey identifies the column a sorter orders by and the direction. Sorts
// are stable: rows with equal keys keep their input order.
type SortKey struct {
	ColIdx int
	Desc   bool
}

type sortPhase int

const (
	sortAccumulating sortPhase = iota
	// sortEmitting is the in-memory fast path: no run was ever created, the
	// sorted buffer is emitted directly.
	sortEmitting
	// sortMerging merges spilled runs into the output stream.
	sortMerging
	sortDone
)

// sorter orders its input by a single key. While accumulating it buffers
// input batches in memory; whenever the run manager's budget fires, the
// buffer is stable-sorted and flushed to storage as one run. On input
// exhaustion either the sorted buffer is emitted directly (zero runs) or all
// runs are k-way merged. The out-of-core and in-memory paths produce
// identical row sequences.
type sorter struct {
	execop.OneInputNode

	key    SortKey
	mgr    *colcontainer.RunManager
	schema coldata.Schema

	phase         sortPhase
	buffer        []*coldata.Batch
	bufferedRows  int
	bufferedBytes int64
	runs          []*colcontainer.Run

	sorted  *coldata.Batch
	emitIdx int

	merger *runMerger
	closed bool
}

var _ execop.Operator = &sorter{}

// NewSorter returns an operator producing the rows of input ordered by key.
func NewSorter(
	input execop.Operator, key SortKey, mgr *colcontainer.RunManager,
) (execop.Operator, error) {
	schema := input.Schema()
	if key.ColIdx < 0 || key.ColIdx >= len(schema) {
		return nil, execerror.Configf(
			"sort key column %d out of range for schema %s", key.ColIdx, schema,
		)
	}
	return &sorter{
		OneInputNode: execop.NewOneInputNode(input),
		key:          key,
		mgr:          mgr,
		schema:       schema,
	}, nil
}

func (s *sorter) Init(ctx context.Context) error {
	return s.Input.Init(ctx)
}

func (s *sorter) Schema() coldata.Schema { return s.schema }

func (s *sorter) Next(ctx context.Context, remaining int) (*coldata.Batch, error) {
	if remaining <= 0 {
		return coldata.ZeroBatch, nil
	}
	if s.phase == sortAccumulating {
		if err := s.consumeInput(ctx); err != nil {
			return nil, err
		}
	}
	switch s.phase {
	case sortEmitting:
		n := s.sorted.Length() - s.emitIdx
		if n == 0 {
			s.phase = sortDone
			return coldata.ZeroBatch, nil
		}
		if n > coldata.BatchSize() {
			n = coldata.BatchSize()
		}
		if n > remaining {
			n = remaining
		}
		out := coldata.NewBatchWithCapacity(s.schema.Types(), n)
		out.AppendRows(s.sorted, s.emitIdx, s.emitIdx+n)
		s.emitIdx += n
		return out, nil

	case sortMerging:
		n := coldata.BatchSize()
		if n > remaining {
			n = remaining
		}
		out, err := s.merger.nextBatch(n)
		if err != nil {
			return nil, err
		}
		if out.Length() == 0 {
			s.phase = sortDone
		}
		return out, nil

	case sortDone:
		return coldata.ZeroBatch, nil
	}
	panic("unreachable sort phase")
}

// consumeInput drains the upstream, spilling the buffer as runs whenever the
// budget fires, then arms either the emit or the merge phase.
func (s *sorter) consumeInput(ctx context.Context) error {
	for {
		b, err := s.Input.Next(ctx, execop.NoLimit)
		if err != nil {
			return err
		}
		if b.Length() == 0 {
			break
		}
		if len(s.buffer) > 0 && s.mgr.ShouldSpill(s.bufferedBytes+b.MemSize()) {
			if err := s.spillBuffer(ctx); err != nil {
				return err
			}
		}
		s.buffer = append(s.buffer, b)
		s.bufferedRows += b.Length()
		s.bufferedBytes += b.MemSize()
	}

	if len(s.runs) == 0 {
		s.sorted = s.sortBuffer()
		s.phase = sortEmitting
		return nil
	}
	if len(s.buffer) > 0 {
		if err := s.spillBuffer(ctx); err != nil {
			return err
		}
	}
	merger, err := newRunMerger(ctx, s.runs, s.key, s.schema.Types())
	if err != nil {
		return err
	}
	s.merger = merger
	s.phase = sortMerging
	return nil
}

// sortBuffer coalesces the buffered batches into a single batch and stable
// sorts it by the key via a selection permutation.
func (s *sorter) sortBuffer() *coldata.Batch {
	all := coldata.NewBatchWithCapacity(s.schema.Types(), s.bufferedRows)
	for _, b := range s.buffer {
		all.AppendRows(b, 0, b.Length())
	}
	s.buffer, s.bufferedRows, s.bufferedBytes = nil, 0, 0

	n := all.Length()
	if n == 0 {
		return all
	}
	keys := all.ColVec(s.key.ColIdx)
	sels := make([]int, n)
	for i := range sels {
		sels[i] = i
	}
	sort.SliceStable(sels, func(i, j int) bool {
		cmp := coldata.CompareAt(keys, sels[i], keys, sels[j])
		if s.key.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
	all.Shuffle(sels)
	return all
}

func (s *sorter) spillBuffer(ctx context.Context) error {
	sorted := s.sortBuffer()
	if sorted.Length() == 0 {
		return nil
	}
	w, err := s.mgr.NewRun(ctx, s.schema.Types())
	if err != nil {
		return err
	}
	for start := 0; start < sorted.Length(); start += coldata.BatchSize() {
		end := start + coldata.BatchSize()
		if end > sorted.Length() {
			end = sorted.Length()
		}
		chunk := coldata.NewBatchWithCapacity(s.schema.Types(), end-start)
		chunk.AppendRows(sorted, start, end)
		if err := w.Enqueue(chunk); err != nil {
			w.Abort()
			return err
		}
	}
	run, err := w.Finalize()
	if err != nil {
		return err
	}
	s.runs = append(s.runs, run)
	return nil
}

func (s *sorter) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	if s.merger != nil {
		firstErr = s.merger.close()
		s.merger = nil
	}
	// Runs still in s.runs were not fully consumed (error or early
	// termination); delete them. Run.Close is idempotent, so runs the merger
	// already deleted are no-ops here.
	for _, r := range s.runs {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.runs = nil
	s.buffer = nil
	s.sorted = nil
	if err := s.Input.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
