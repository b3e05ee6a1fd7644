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

	"golang.org/x/sync/errgroup"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/colcontainer"
	"github.com/vecflow/vecflow/pkg/exec/execerror"
	"github.com/vecflow/vecflow/pkg/exec/execop"
)

// crossJoiner emits the all-pairs combination of its two inputs in
// row-major order: for each left row, the entire right stream, right
// iterating fastest.
//
// Both sides are consumed lazily. The right side is recorded into a
// rewindable queue on the first pass and replayed from the recording for
// every following left row, so the upstream is pulled at most once. Each
// Next call builds at most remaining rows and returns without touching
// either input once that bound is met, which keeps a limited query's cost
// proportional to the limit rather than to the product size.
type crossJoiner struct {
	execop.TwoInputNode

	mgr       *colcontainer.RunManager
	schema    coldata.Schema
	leftWidth int

	leftBatch  *coldata.Batch
	leftRowIdx int

	rightQueue    *colcontainer.RewindableQueue
	rightBatch    *coldata.Batch
	rightRowIdx   int
	rightRecorded bool

	done   bool
	closed bool
}

var _ execop.Operator = &crossJoiner{}

// NewCrossJoiner returns the cross join of left and right. The sides must
// have joinable shapes: at least one column each and no shared column names.
func NewCrossJoiner(
	left, right execop.Operator, mgr *colcontainer.RunManager,
) (execop.Operator, error) {
	ls, rs := left.Schema(), right.Schema()
	if len(ls) == 0 || len(rs) == 0 {
		return nil, execerror.Configf(
			"cross join requires columns on both sides, got %s and %s", ls, rs,
		)
	}
	if !ls.Disjoint(rs) {
		return nil, execerror.Configf(
			"cross join sides share column names: %s and %s", ls, rs,
		)
	}
	return &crossJoiner{
		TwoInputNode: execop.NewTwoInputNode(left, right),
		mgr:          mgr,
		schema:       ls.Concat(rs),
		leftWidth:    len(ls),
	}, nil
}

func (c *crossJoiner) Init(ctx context.Context) error {
	// The two sides are independent pipeline branches; initialize them
	// concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.InputOne.Init(gctx) })
	g.Go(func() error { return c.InputTwo.Init(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}
	c.rightQueue = colcontainer.NewRewindableQueue(c.mgr, c.InputTwo.Schema().Types())
	return nil
}

func (c *crossJoiner) Schema() coldata.Schema { return c.schema }

func (c *crossJoiner) Next(ctx context.Context, remaining int) (*coldata.Batch, error) {
	if c.done || remaining <= 0 {
		return coldata.ZeroBatch, nil
	}
	want := coldata.BatchSize()
	if remaining < want {
		want = remaining
	}
	out := coldata.NewBatchWithCapacity(c.schema.Types(), want)
	rows := 0
	for rows < want {
		if err := c.ensureLeftRow(ctx); err != nil {
			return nil, err
		}
		if c.done {
			break
		}
		if c.rightBatch == nil || c.rightRowIdx == c.rightBatch.Length() {
			if err := c.advanceRight(ctx); err != nil {
				return nil, err
			}
		}
		if c.rightBatch == nil {
			// The pass over the right side for the current left row is
			// complete.
			if c.rightQueue.NumRows() == 0 {
				// Empty right side: the product is empty.
				c.done = true
				break
			}
			c.leftRowIdx++
			if err := c.rightQueue.Rewind(); err != nil {
				return nil, err
			}
			continue
		}

		n := want - rows
		if rem := c.rightBatch.Length() - c.rightRowIdx; rem < n {
			n = rem
		}
		for i := 0; i < c.leftWidth; i++ {
			out.ColVec(i).AppendRepeat(c.leftBatch.ColVec(i), c.leftRowIdx, n)
		}
		for i := c.leftWidth; i < len(c.schema); i++ {
			out.ColVec(i).AppendRange(
				c.rightBatch.ColVec(i-c.leftWidth), c.rightRowIdx, c.rightRowIdx+n,
			)
		}
		c.rightRowIdx += n
		rows += n
	}
	if rows == 0 {
		return coldata.ZeroBatch, nil
	}
	out.SetRowCount(rows)
	return out, nil
}

// ensureLeftRow positions the cursor on a valid left row, pulling the next
// left batch if the current one is exhausted. Sets done once the left stream
// ends.
func (c *crossJoiner) ensureLeftRow(ctx context.Context) error {
	for c.leftBatch == nil || c.leftRowIdx == c.leftBatch.Length() {
		b, err := c.InputOne.Next(ctx, execop.NoLimit)
		if err != nil {
			return err
		}
		if b.Length() == 0 {
			c.done = true
			return nil
		}
		c.leftBatch, c.leftRowIdx = b, 0
	}
	return nil
}

// advanceRight loads the next right batch for the current pass: from the
// upstream while recording on the first pass, from the recording afterwards.
// A nil rightBatch afterwards means the pass is complete.
func (c *crossJoiner) advanceRight(ctx context.Context) error {
	c.rightRowIdx = 0
	if !c.rightRecorded {
		b, err := c.InputTwo.Next(ctx, execop.NoLimit)
		if err != nil {
			return err
		}
		if b.Length() == 0 {
			c.rightRecorded = true
			c.rightBatch = nil
			return c.rightQueue.FinishWrites()
		}
		if err := c.rightQueue.Enqueue(ctx, b); err != nil {
			return err
		}
		c.rightBatch = b
		return nil
	}
	b, err := c.rightQueue.Dequeue(ctx)
	if err != nil {
		return err
	}
	c.rightBatch = b
	return nil
}

func (c *crossJoiner) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	var firstErr error
	if c.rightQueue != nil {
		firstErr = c.rightQueue.Close()
		c.rightQueue = nil
	}
	if err := c.InputOne.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.InputTwo.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
