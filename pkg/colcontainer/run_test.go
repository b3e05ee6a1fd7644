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
	"math"
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/marusama/semaphore"
	"github.com/stretchr/testify/require"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/col/coltypes"
)

var testTypes = []coltypes.T{coltypes.Int64, coltypes.Float64, coltypes.Bytes, coltypes.Bool}

func newTestManager(t *testing.T, budget int64, force bool) *RunManager {
	t.Helper()
	m, err := NewRunManager(Cfg{
		FS:          vfs.NewMem(),
		TempDir:     "spill",
		FDSemaphore: semaphore.New(16),
	}, budget, force)
	require.NoError(t, err)
	return m
}

func makeTestBatch(t *testing.T, start, n int) *coldata.Batch {
	t.Helper()
	b := coldata.NewBatchWithCapacity(testTypes, n)
	for i := 0; i < n; i++ {
		b.ColVec(0).AppendInt64(int64(start + i))
		b.ColVec(1).AppendFloat64(float64(start+i) / 2)
		b.ColVec(2).AppendBytes([]byte{byte('a' + (start+i)%26)})
		b.ColVec(3).AppendBool((start+i)%2 == 0)
	}
	b.SetRowCount(n)
	return b
}

func requireBatchEqual(t *testing.T, expected, actual *coldata.Batch) {
	t.Helper()
	require.Equal(t, expected.Length(), actual.Length())
	require.Equal(t, expected.Width(), actual.Width())
	n := expected.Length()
	require.Equal(t, expected.ColVec(0).Int64()[:n], actual.ColVec(0).Int64()[:n])
	require.Equal(t, expected.ColVec(1).Float64()[:n], actual.ColVec(1).Float64()[:n])
	require.Equal(t, expected.ColVec(2).Bytes()[:n], actual.ColVec(2).Bytes()[:n])
	require.Equal(t, expected.ColVec(3).Bool()[:n], actual.ColVec(3).Bool()[:n])
}

func TestRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 1<<20, false)

	w, err := m.NewRun(ctx, testTypes)
	require.NoError(t, err)
	batches := []*coldata.Batch{
		makeTestBatch(t, 0, 100),
		makeTestBatch(t, 100, 1),
		makeTestBatch(t, 101, 1024),
	}
	for _, b := range batches {
		require.NoError(t, w.Enqueue(b))
	}
	run, err := w.Finalize()
	require.NoError(t, err)
	require.Equal(t, 100+1+1024, run.NumRows())
	require.Equal(t, 1, m.NumLiveRuns())

	r, err := run.NewReader(ctx)
	require.NoError(t, err)
	for _, expected := range batches {
		got, err := r.Next()
		require.NoError(t, err)
		require.NotNil(t, got)
		requireBatchEqual(t, expected, got)
	}
	got, err := r.Next()
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, r.Close())

	require.NoError(t, run.Close())
	require.Zero(t, m.NumLiveRuns())
	// Close is idempotent.
	require.NoError(t, run.Close())
}

func TestRunWriterAbort(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 1<<20, false)

	w, err := m.NewRun(ctx, testTypes)
	require.NoError(t, err)
	require.NoError(t, w.Enqueue(makeTestBatch(t, 0, 10)))
	require.Equal(t, 1, m.NumLiveRuns())
	w.Abort()
	require.Zero(t, m.NumLiveRuns())
}

func TestRunManagerCloseRemovesLeaks(t *testing.T) {
	ctx := context.Background()
	fs := vfs.NewMem()
	m, err := NewRunManager(Cfg{FS: fs, TempDir: "spill"}, 1<<20, false)
	require.NoError(t, err)

	w, err := m.NewRun(ctx, testTypes)
	require.NoError(t, err)
	require.NoError(t, w.Enqueue(makeTestBatch(t, 0, 10)))
	_, err = w.Finalize()
	require.NoError(t, err)
	require.Equal(t, 1, m.NumLiveRuns())

	require.NoError(t, m.Close())
	require.Zero(t, m.NumLiveRuns())
	files, err := fs.List("spill")
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestBlockFrameLimit(t *testing.T) {
	frame, err := blockFrame(259)
	require.NoError(t, err)
	require.Equal(t, [4]byte{3, 1, 0, 0}, frame)

	frame, err = blockFrame(math.MaxUint32)
	require.NoError(t, err)
	require.Equal(t, [4]byte{0xff, 0xff, 0xff, 0xff}, frame)

	_, err = blockFrame(int64(math.MaxUint32) + 1)
	require.Error(t, err)
}

func TestShouldSpill(t *testing.T) {
	m := newTestManager(t, 100, false)
	require.False(t, m.ShouldSpill(100))
	require.True(t, m.ShouldSpill(101))

	forced := newTestManager(t, 1<<30, true)
	require.True(t, forced.ShouldSpill(0))
}
