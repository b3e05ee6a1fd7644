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
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vecflow/vecflow/pkg/exec/execerror"
)

func TestCrossJoinRowMajorOrder(t *testing.T) {
	mgr := newTestRunManager(t, 1<<30, false)
	j, err := NewCrossJoiner(
		NewInt64Series("l", []int64{1, 2, 3}),
		NewInt64Series("r", []int64{10, 20}),
		mgr,
	)
	require.NoError(t, err)

	res := collect(t, j)
	require.Equal(t, 6, res.Length())
	require.Equal(t, []int64{1, 1, 2, 2, 3, 3}, res.ColVec(0).Int64())
	require.Equal(t, []int64{10, 20, 10, 20, 10, 20}, res.ColVec(1).Int64())
}

func TestCrossJoinLimitBounded(t *testing.T) {
	// A limited cross join of two 100k-row sides must complete in time
	// proportional to the limit, not to the 10^10-row product.
	const n = 100000
	mgr := newTestRunManager(t, 1<<30, false)
	j, err := NewCrossJoiner(NewRange("l", n), NewRange("r", n), mgr)
	require.NoError(t, err)
	head, err := NewLimiter(j, 5)
	require.NoError(t, err)

	start := time.Now()
	res := collect(t, head)
	elapsed := time.Since(start)

	require.Equal(t, 5, res.Length())
	require.Equal(t, 2, res.Width())
	require.Equal(t, []int64{0, 0, 0, 0, 0}, res.ColVec(0).Int64())
	require.Equal(t, []int64{0, 1, 2, 3, 4}, res.ColVec(1).Int64())
	require.Less(t, elapsed, 500*time.Millisecond)
}

func TestCrossJoinNoOverProduction(t *testing.T) {
	const n = 100000
	mgr := newTestRunManager(t, 1<<30, false)
	left, leftCounts := NewPullCounter(NewRange("l", n))
	right, rightCounts := NewPullCounter(NewRange("r", n))
	j, err := NewCrossJoiner(left, right, mgr)
	require.NoError(t, err)
	head, err := NewLimiter(j, 5)
	require.NoError(t, err)

	res := collect(t, head)
	require.Equal(t, 5, res.Length())
	// ceil(5/100000)+1 batches from the left, and no more of the right than
	// the first pass needed.
	require.LessOrEqual(t, leftCounts.Batches, 2)
	require.LessOrEqual(t, rightCounts.Batches, 1)
}

func TestCrossJoinSharedColumnNames(t *testing.T) {
	mgr := newTestRunManager(t, 1<<30, false)
	_, err := NewCrossJoiner(
		NewInt64Series("x", []int64{1}),
		NewInt64Series("x", []int64{2}),
		mgr,
	)
	require.Error(t, err)
	require.True(t, execerror.IsConfig(err))
}

func TestCrossJoinEmptySides(t *testing.T) {
	for _, tc := range []struct {
		name        string
		left, right []int64
	}{
		{name: "empty-left", left: nil, right: []int64{1, 2}},
		{name: "empty-right", left: []int64{1, 2}, right: nil},
		{name: "both-empty", left: nil, right: nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mgr := newTestRunManager(t, 1<<30, false)
			j, err := NewCrossJoiner(
				NewInt64Series("l", tc.left),
				NewInt64Series("r", tc.right),
				mgr,
			)
			require.NoError(t, err)
			res := collect(t, j)
			require.Zero(t, res.Length())
		})
	}
}

func TestCrossJoinSpilledRightSide(t *testing.T) {
	// Force the right-side recording to storage and verify replay across
	// left rows still yields the exact product.
	mgr := newTestRunManager(t, 1<<30, true)
	const leftN, rightN = 3, 2500
	j, err := NewCrossJoiner(NewRange("l", leftN), NewRange("r", rightN), mgr)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, j.Init(ctx))
	res, err := Materialize(ctx, j)
	require.NoError(t, err)
	require.Equal(t, leftN*rightN, res.Length())

	l, r := res.ColVec(0).Int64(), res.ColVec(1).Int64()
	for i := 0; i < leftN*rightN; i++ {
		require.Equal(t, int64(i/rightN), l[i], "left at row %d", i)
		require.Equal(t, int64(i%rightN), r[i], "right at row %d", i)
	}

	require.NoError(t, j.Close(ctx))
	require.Zero(t, mgr.NumLiveRuns())
}
