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
	"fmt"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/marusama/semaphore"
	"github.com/stretchr/testify/require"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/col/coltypes"
	"github.com/vecflow/vecflow/pkg/colcontainer"
	"github.com/vecflow/vecflow/pkg/exec/execerror"
	"github.com/vecflow/vecflow/pkg/exec/execop"
)

func newTestRunManager(t *testing.T, budget int64, force bool) *colcontainer.RunManager {
	t.Helper()
	m, err := colcontainer.NewRunManager(colcontainer.Cfg{
		FS:          vfs.NewMem(),
		TempDir:     "spill",
		FDSemaphore: semaphore.New(64),
	}, budget, force)
	require.NoError(t, err)
	return m
}

// collect initializes, drains and closes op.
func collect(t *testing.T, op execop.Operator) *coldata.Batch {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, op.Init(ctx))
	res, err := Materialize(ctx, op)
	require.NoError(t, err)
	require.NoError(t, op.Close(ctx))
	return res
}

func shuffled(n int, seed int64) []int64 {
	rng := rand.New(rand.NewSource(seed))
	vals := make([]int64, n)
	for i, p := range rng.Perm(n) {
		vals[i] = int64(p)
	}
	return vals
}

func TestSorterMatchesInMemorySort(t *testing.T) {
	const n = 10000
	vals := shuffled(n, 42)

	for _, tc := range []struct {
		name   string
		budget int64
		force  bool
	}{
		{name: "in-memory", budget: 1 << 30},
		{name: "forced-ooc", budget: 1 << 30, force: true},
		{name: "tiny-budget", budget: 4096},
	} {
		for _, desc := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/desc=%v", tc.name, desc), func(t *testing.T) {
				mgr := newTestRunManager(t, tc.budget, tc.force)
				s, err := NewSorter(NewInt64Series("idx", vals), SortKey{Desc: desc}, mgr)
				require.NoError(t, err)

				res := collect(t, s)
				require.Equal(t, n, res.Length())
				col := res.ColVec(0).Int64()
				for i := 0; i < n; i++ {
					expected := int64(i)
					if desc {
						expected = int64(n - 1 - i)
					}
					require.Equal(t, expected, col[i], "row %d", i)
				}
				require.Zero(t, mgr.NumLiveRuns())
			})
		}
	}
}

func TestSorterStability(t *testing.T) {
	// Rows share keys in groups; the second column records input order.
	const n = 5000
	types := []coltypes.T{coltypes.Int64, coltypes.Int64}
	data := coldata.NewBatchWithCapacity(types, n)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < n; i++ {
		data.ColVec(0).AppendInt64(int64(rng.Intn(20)))
		data.ColVec(1).AppendInt64(int64(i))
	}
	data.SetRowCount(n)
	schema := coldata.Schema{
		{Name: "key", T: coltypes.Int64},
		{Name: "seq", T: coltypes.Int64},
	}

	for _, force := range []bool{false, true} {
		for _, desc := range []bool{false, true} {
			t.Run(fmt.Sprintf("force=%v/desc=%v", force, desc), func(t *testing.T) {
				mgr := newTestRunManager(t, 1<<30, force)
				src, err := NewBatchSource(schema, data)
				require.NoError(t, err)
				s, err := NewSorter(src, SortKey{ColIdx: 0, Desc: desc}, mgr)
				require.NoError(t, err)

				res := collect(t, s)
				require.Equal(t, n, res.Length())
				keys, seqs := res.ColVec(0).Int64(), res.ColVec(1).Int64()
				for i := 1; i < n; i++ {
					if keys[i] == keys[i-1] {
						require.Less(t, seqs[i-1], seqs[i],
							"equal keys out of input order at row %d", i)
					} else if desc {
						require.Less(t, keys[i], keys[i-1])
					} else {
						require.Greater(t, keys[i], keys[i-1])
					}
				}
			})
		}
	}
}

func TestSorterSpillCleanupOnEarlyTermination(t *testing.T) {
	ctx := context.Background()
	mgr := newTestRunManager(t, 1<<30, true)
	s, err := NewSorter(NewInt64Series("idx", shuffled(5000, 3)), SortKey{}, mgr)
	require.NoError(t, err)
	head, err := NewLimiter(s, 10)
	require.NoError(t, err)

	require.NoError(t, head.Init(ctx))
	res, err := Materialize(ctx, head)
	require.NoError(t, err)
	require.Equal(t, 10, res.Length())
	for i, v := range res.ColVec(0).Int64() {
		require.Equal(t, int64(i), v)
	}
	// The merge was cut short: unconsumed runs must still be deleted.
	require.NoError(t, head.Close(ctx))
	require.Zero(t, mgr.NumLiveRuns())
}

func TestSorterEmptyInput(t *testing.T) {
	for _, force := range []bool{false, true} {
		mgr := newTestRunManager(t, 1<<30, force)
		s, err := NewSorter(NewInt64Series("idx", nil), SortKey{}, mgr)
		require.NoError(t, err)
		res := collect(t, s)
		require.Zero(t, res.Length())
		require.Zero(t, mgr.NumLiveRuns())
	}
}

func TestSorterInvalidKey(t *testing.T) {
	mgr := newTestRunManager(t, 1<<30, false)
	_, err := NewSorter(NewInt64Series("idx", []int64{1}), SortKey{ColIdx: 3}, mgr)
	require.Error(t, err)
	require.True(t, execerror.IsConfig(err))
}

// failingFS wraps a filesystem so that every file created on it fails its
// writes.
type failingFS struct {
	vfs.FS
}

func (f failingFS) Create(name string) (vfs.File, error) {
	file, err := f.FS.Create(name)
	if err != nil {
		return nil, err
	}
	return failingFile{File: file}, nil
}

type failingFile struct {
	vfs.File
}

func (f failingFile) Write([]byte) (int, error) {
	return 0, errors.New("disk failure")
}

func TestSorterSpillWriteFailure(t *testing.T) {
	ctx := context.Background()
	mgr, err := colcontainer.NewRunManager(colcontainer.Cfg{
		FS:          failingFS{FS: vfs.NewMem()},
		TempDir:     "spill",
		FDSemaphore: semaphore.New(64),
	}, 1<<30, true)
	require.NoError(t, err)

	s, err := NewSorter(NewInt64Series("idx", shuffled(5000, 11)), SortKey{}, mgr)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))

	res, err := Materialize(ctx, s)
	require.Error(t, err)
	require.True(t, execerror.IsSpill(err))
	require.ErrorContains(t, err, "disk failure")
	require.Nil(t, res)
	// The aborted run must not linger on storage.
	require.NoError(t, s.Close(ctx))
	require.Zero(t, mgr.NumLiveRuns())
}

func TestSorterHonorsRemainingHint(t *testing.T) {
	ctx := context.Background()
	mgr := newTestRunManager(t, 1<<30, true)
	s, err := NewSorter(NewInt64Series("idx", shuffled(3000, 5)), SortKey{}, mgr)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))

	b, err := s.Next(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 7, b.Length())
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6}, b.ColVec(0).Int64())
	require.NoError(t, s.Close(ctx))
	require.Zero(t, mgr.NumLiveRuns())
}
