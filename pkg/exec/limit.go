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
	"github.com/vecflow/vecflow/pkg/exec/execerror"
	"github.com/vecflow/vecflow/pkg/exec/execop"
)

// limiter passes through the first limit rows of its input. Each pull
// computes how many rows are still wanted and passes that bound upstream;
// once it reaches zero the limiter returns a zero batch without touching its
// input again. Reaching the limit is clean termination, not an error.
type limiter struct {
	execop.OneInputNode

	limit int
	seen  int
}

var _ execop.Operator = &limiter{}

// NewLimiter returns an operator emitting at most limit rows of input.
func NewLimiter(input execop.Operator, limit int) (execop.Operator, error) {
	if limit < 0 {
		return nil, execerror.Configf("limit must be non-negative, got %d", limit)
	}
	return &limiter{OneInputNode: execop.NewOneInputNode(input), limit: limit}, nil
}

func (l *limiter) Init(ctx context.Context) error { return l.Input.Init(ctx) }

func (l *limiter) Schema() coldata.Schema { return l.Input.Schema() }

func (l *limiter) Next(ctx context.Context, remaining int) (*coldata.Batch, error) {
	want := l.limit - l.seen
	if remaining < want {
		want = remaining
	}
	if want <= 0 {
		return coldata.ZeroBatch, nil
	}
	b, err := l.Input.Next(ctx, want)
	if err != nil {
		return nil, err
	}
	if b.Length() > want {
		b.SetLength(want)
	}
	l.seen += b.Length()
	return b, nil
}

func (l *limiter) Close(ctx context.Context) error { return l.Input.Close(ctx) }
