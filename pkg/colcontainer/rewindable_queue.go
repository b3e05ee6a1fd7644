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

package colcontainer

import (
	"context"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/col/coltypes"
	"github.com/vecflow/vecflow/pkg/exec/execerror"
)

// RewindableQueue records a stream of batches so it can be replayed any
// number of times. Batches stay in memory until the manager's budget fires;
// from then on every further batch goes to a single run on storage. The
// write phase (Enqueue, then FinishWrites) must complete before the first
// Dequeue.
//
// The cross join uses this for its inner side: the first pass over the right
// input records it, later passes replay the recording instead of re-pulling
// the upstream.
type RewindableQueue struct {
	m     *RunManager
	types []coltypes.T

	items    []*coldata.Batch
	memBytes int64

	w   *RunWriter
	run *Run
	r   *RunReader

	dequeueIdx int
	numRows    int
	finished   bool
}

// NewRewindableQueue returns an empty queue recording batches of the given
// column kinds.
func NewRewindableQueue(m *RunManager, types []coltypes.T) *RewindableQueue {
	return &RewindableQueue{m: m, types: types}
}

// Enqueue records one batch. The batch remains readable by the caller.
func (q *RewindableQueue) Enqueue(ctx context.Context, b *coldata.Batch) error {
	if q.finished {
		return execerror.Configf("enqueue after FinishWrites")
	}
	if b.Length() == 0 {
		return nil
	}
	q.numRows += b.Length()
	if q.w == nil && !q.m.ShouldSpill(q.memBytes+b.MemSize()) {
		q.items = append(q.items, b)
		q.memBytes += b.MemSize()
		return nil
	}
	if q.w == nil {
		w, err := q.m.NewRun(ctx, q.types)
		if err != nil {
			return err
		}
		q.w = w
	}
	return q.w.Enqueue(b)
}

// FinishWrites declares the recording complete.
func (q *RewindableQueue) FinishWrites() error {
	if q.finished {
		return nil
	}
	q.finished = true
	if q.w != nil {
		run, err := q.w.Finalize()
		q.w = nil
		if err != nil {
			return err
		}
		q.run = run
	}
	return nil
}

// NumRows returns the total number of rows recorded so far.
func (q *RewindableQueue) NumRows() int { return q.numRows }

// Dequeue returns the next recorded batch, or nil once the recording is
// drained for the current pass.
func (q *RewindableQueue) Dequeue(ctx context.Context) (*coldata.Batch, error) {
	if q.dequeueIdx < len(q.items) {
		b := q.items[q.dequeueIdx]
		q.dequeueIdx++
		return b, nil
	}
	if q.run == nil {
		return nil, nil
	}
	if q.r == nil {
		r, err := q.run.NewReader(ctx)
		if err != nil {
			return nil, err
		}
		q.r = r
	}
	return q.r.Next()
}

// Rewind restarts iteration from the first recorded batch.
func (q *RewindableQueue) Rewind() error {
	q.dequeueIdx = 0
	if q.r != nil {
		err := q.r.Close()
		q.r = nil
		if err != nil {
			return err
		}
	}
	return nil
}

// Close releases the recording, deleting its run if one was created.
// Idempotent.
func (q *RewindableQueue) Close() error {
	q.items = nil
	var firstErr error
	if q.w != nil {
		q.w.Abort()
		q.w = nil
	}
	if q.r != nil {
		firstErr = q.r.Close()
		q.r = nil
	}
	if q.run != nil {
		if err := q.run.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		q.run = nil
	}
	return firstErr
}
