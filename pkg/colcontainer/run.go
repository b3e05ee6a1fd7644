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
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/dustin/go-humanize"
	"github.com/golang/snappy"
	"go.uber.org/zap"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/col/coltypes"
	"github.com/vecflow/vecflow/pkg/exec/execerror"
)

// RunWriter streams already-sorted batches into a new run. Batches must be
// enqueued in run order; the writer takes no ownership of them.
type RunWriter struct {
	m     *RunManager
	types []coltypes.T
	path  string
	file  vfs.File

	numRows      int
	bytesWritten int64
	scratch      []byte
	compressed   []byte
}

// NewRun begins a new run holding batches of the given column kinds. The
// returned writer must be finalized or aborted.
func (m *RunManager) NewRun(ctx context.Context, types []coltypes.T) (*RunWriter, error) {
	if m.cfg.FDSemaphore != nil {
		if err := m.cfg.FDSemaphore.Acquire(ctx, 1); err != nil {
			return nil, execerror.Spillf(err, "acquiring file handle for run")
		}
	}
	path := m.newRunPath()
	file, err := m.cfg.FS.Create(path)
	if err != nil {
		if m.cfg.FDSemaphore != nil {
			m.cfg.FDSemaphore.Release(1)
		}
		return nil, execerror.Spillf(err, "creating run %s", path)
	}
	m.register(path)
	return &RunWriter{m: m, types: types, path: path, file: file}, nil
}

// blockFrame encodes the length prefix of one compressed block. Blocks
// larger than the uint32 frame can describe are rejected rather than
// silently truncated.
func blockFrame(n int64) ([4]byte, error) {
	var frame [4]byte
	if n > math.MaxUint32 {
		return frame, errors.Newf("compressed block of %s exceeds the frame limit",
			humanize.IBytes(uint64(n)))
	}
	binary.LittleEndian.PutUint32(frame[:], uint32(n))
	return frame, nil
}

// Enqueue appends one batch to the run.
func (w *RunWriter) Enqueue(b *coldata.Batch) error {
	if b.Length() == 0 {
		return nil
	}
	w.scratch = encodeBatch(w.scratch[:0], b)
	w.compressed = snappy.Encode(w.compressed[:cap(w.compressed)], w.scratch)
	frame, err := blockFrame(int64(len(w.compressed)))
	if err != nil {
		return execerror.Spillf(err, "writing run %s", w.path)
	}
	if _, err := w.file.Write(frame[:]); err != nil {
		return execerror.Spillf(err, "writing run %s", w.path)
	}
	if _, err := w.file.Write(w.compressed); err != nil {
		return execerror.Spillf(err, "writing run %s", w.path)
	}
	w.numRows += b.Length()
	w.bytesWritten += int64(len(frame) + len(w.compressed))
	return nil
}

// Finalize completes the run and hands ownership to the returned Run.
func (w *RunWriter) Finalize() (*Run, error) {
	err := w.file.Close()
	if w.m.cfg.FDSemaphore != nil {
		w.m.cfg.FDSemaphore.Release(1)
	}
	if err != nil {
		w.m.deleteRunFile(w.path)
		return nil, execerror.Spillf(err, "finalizing run %s", w.path)
	}
	w.m.cfg.Logger.Debug("spilled run",
		zap.String("path", w.path),
		zap.Int("rows", w.numRows),
		zap.String("size", humanize.IBytes(uint64(w.bytesWritten))),
	)
	return &Run{m: w.m, types: w.types, path: w.path, numRows: w.numRows}, nil
}

// Abort discards a run that will never be read, deleting its file.
func (w *RunWriter) Abort() {
	_ = w.file.Close()
	if w.m.cfg.FDSemaphore != nil {
		w.m.cfg.FDSemaphore.Release(1)
	}
	w.m.deleteRunFile(w.path)
}

// Run is a finalized, sorted sequence of rows on secondary storage. It is
// owned by the operator that created it and deleted via Close once consumed.
type Run struct {
	m       *RunManager
	types   []coltypes.T
	path    string
	numRows int
	closed  bool
}

// NumRows returns the number of rows in the run.
func (r *Run) NumRows() int { return r.numRows }

// NewReader opens the run for sequential reading. Multiple readers over one
// run are allowed, one at a time.
func (r *Run) NewReader(ctx context.Context) (*RunReader, error) {
	if r.m.cfg.FDSemaphore != nil {
		if err := r.m.cfg.FDSemaphore.Acquire(ctx, 1); err != nil {
			return nil, execerror.Spillf(err, "acquiring file handle for run")
		}
	}
	file, err := r.m.cfg.FS.Open(r.path)
	if err != nil {
		if r.m.cfg.FDSemaphore != nil {
			r.m.cfg.FDSemaphore.Release(1)
		}
		return nil, execerror.Spillf(err, "opening run %s", r.path)
	}
	return &RunReader{run: r, file: file}, nil
}

// Close deletes the run from storage. Idempotent.
func (r *Run) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.m.deleteRunFile(r.path)
}

func (m *RunManager) deleteRunFile(path string) error {
	err := m.cfg.FS.Remove(path)
	m.unregister(path)
	if err != nil {
		return execerror.Spillf(err, "deleting run %s", path)
	}
	return nil
}

// RunReader iterates over the batches of a run in write order.
type RunReader struct {
	run    *Run
	file   vfs.File
	closed bool

	frame      [4]byte
	compressed []byte
	scratch    []byte
}

// Next returns the next batch of the run, or nil once the run is drained.
func (r *RunReader) Next() (*coldata.Batch, error) {
	if _, err := io.ReadFull(r.file, r.frame[:]); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, execerror.Spillf(err, "reading run %s", r.run.path)
	}
	n := int(binary.LittleEndian.Uint32(r.frame[:]))
	if cap(r.compressed) < n {
		r.compressed = make([]byte, n)
	}
	r.compressed = r.compressed[:n]
	if _, err := io.ReadFull(r.file, r.compressed); err != nil {
		return nil, execerror.Spillf(err, "reading run %s", r.run.path)
	}
	var err error
	r.scratch, err = snappy.Decode(r.scratch[:cap(r.scratch)], r.compressed)
	if err != nil {
		return nil, execerror.Spillf(err, "decompressing run %s", r.run.path)
	}
	b, err := decodeBatch(r.run.types, r.scratch)
	if err != nil {
		return nil, execerror.Spillf(err, "decoding run %s", r.run.path)
	}
	return b, nil
}

// Close releases the reader's file handle. It does not delete the run.
func (r *RunReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.file.Close()
	if r.run.m.cfg.FDSemaphore != nil {
		r.run.m.cfg.FDSemaphore.Release(1)
	}
	if err != nil {
		return execerror.Spillf(err, "closing run reader %s", r.run.path)
	}
	return nil
}
