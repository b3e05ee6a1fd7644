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
	"github.com/vecflow/vecflow/pkg/exec/execop"
)

// PullCounts records how much data was pulled through a PullCounter.
type PullCounts struct {
	// Calls is the number of Next calls, including ones that returned a zero
	// batch.
	Calls int
	// Batches is the number of non-empty batches returned.
	Batches int
	// Rows is the total number of rows returned.
	Rows int
}

// pullCounter is a transparent wrapper counting what flows through it. Used
// to verify that limited queries do not over-pull their inputs.
type pullCounter struct {
	execop.OneInputNode
	counts *PullCounts
}

var _ execop.Operator = &pullCounter{}

// NewPullCounter wraps input with pull instrumentation.
func NewPullCounter(input execop.Operator) (execop.Operator, *PullCounts) {
	counts := &PullCounts{}
	return &pullCounter{OneInputNode: execop.NewOneInputNode(input), counts: counts}, counts
}

func (p *pullCounter) Init(ctx context.Context) error { return p.Input.Init(ctx) }

func (p *pullCounter) Schema() coldata.Schema { return p.Input.Schema() }

func (p *pullCounter) Next(ctx context.Context, remaining int) (*coldata.Batch, error) {
	p.counts.Calls++
	b, err := p.Input.Next(ctx, remaining)
	if err != nil {
		return nil, err
	}
	if b.Length() > 0 {
		p.counts.Batches++
		p.counts.Rows += b.Length()
	}
	return b, nil
}

func (p *pullCounter) Close(ctx context.Context) error { return p.Input.Close(ctx) }
