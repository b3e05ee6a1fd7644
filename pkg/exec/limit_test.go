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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/exec/execerror"
	"github.com/vecflow/vecflow/pkg/exec/execop"
)

// fullBatchSource ignores the remaining hint and always produces full
// batches, standing in for producers that cannot size their output.
type fullBatchSource struct {
	inner execop.Operator
}

func (s *fullBatchSource) Init(ctx context.Context) error { return s.inner.Init(ctx) }
func (s *fullBatchSource) Schema() coldata.Schema         { return s.inner.Schema() }
func (s *fullBatchSource) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}
func (s *fullBatchSource) Next(ctx context.Context, _ int) (*coldata.Batch, error) {
	return s.inner.Next(ctx, execop.NoLimit)
}

func TestLimiterBasic(t *testing.T) {
	head, err := NewLimiter(NewRange("x", 100), 7)
	require.NoError(t, err)
	res := collect(t, head)
	require.Equal(t, 7, res.Length())
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6}, res.ColVec(0).Int64())
}

func TestLimiterLargerThanInput(t *testing.T) {
	head, err := NewLimiter(NewRange("x", 3), 10)
	require.NoError(t, err)
	res := collect(t, head)
	require.Equal(t, 3, res.Length())
}

func TestLimiterIdempotent(t *testing.T) {
	inner, err := NewLimiter(NewRange("x", 100), 5)
	require.NoError(t, err)
	outer, err := NewLimiter(inner, 5)
	require.NoError(t, err)
	res := collect(t, outer)
	require.Equal(t, 5, res.Length())
	require.Equal(t, []int64{0, 1, 2, 3, 4}, res.ColVec(0).Int64())
}

func TestLimiterZeroNeverPulls(t *testing.T) {
	src, counts := NewPullCounter(NewRange("x", 100))
	head, err := NewLimiter(src, 0)
	require.NoError(t, err)
	res := collect(t, head)
	require.Zero(t, res.Length())
	require.Zero(t, counts.Calls)
}

func TestLimiterTruncatesOverWideBatch(t *testing.T) {
	head, err := NewLimiter(&fullBatchSource{inner: NewRange("x", 1000)}, 5)
	require.NoError(t, err)
	res := collect(t, head)
	require.Equal(t, 5, res.Length())
	require.Equal(t, []int64{0, 1, 2, 3, 4}, res.ColVec(0).Int64())
}

func TestLimiterNegative(t *testing.T) {
	_, err := NewLimiter(NewRange("x", 1), -1)
	require.Error(t, err)
	require.True(t, execerror.IsConfig(err))
}
