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

// Package colcontainer manages secondary-storage-backed runs of batches for
// operators that spill when their working set exceeds the memory budget.
// Runs live in a temporary directory behind a vfs.FS, are invisible to
// callers and never outlive the query that created them.
package colcontainer

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
	"github.com/marusama/semaphore"
	"go.uber.org/zap"

	"github.com/vecflow/vecflow/pkg/exec/execerror"
)

// Cfg groups the environment a RunManager operates in.
type Cfg struct {
	// FS is the filesystem runs are written to. Tests use vfs.NewMem().
	FS vfs.FS
	// TempDir is the directory under FS that holds run files.
	TempDir string
	// FDSemaphore bounds the number of run files open at once. May be nil,
	// in which case file handles are not limited.
	FDSemaphore semaphore.Semaphore
	// Logger receives spill events. Defaults to a nop logger.
	Logger *zap.Logger
}

// RunManager allocates and reclaims runs and owns the memory budget that
// decides when an operator must spill.
type RunManager struct {
	cfg    Cfg
	budget int64
	force  bool

	mu struct {
		sync.Mutex
		liveRuns map[string]struct{}
	}
}

// NewRunManager returns a RunManager writing runs under cfg.TempDir. budget
// is the in-memory byte threshold above which ShouldSpill fires; force makes
// ShouldSpill fire unconditionally, which exists to make out-of-core
// behavior reproducible under test without real memory pressure.
func NewRunManager(cfg Cfg, budget int64, force bool) (*RunManager, error) {
	if cfg.FS == nil {
		return nil, execerror.Configf("run manager requires a filesystem")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if err := cfg.FS.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return nil, execerror.Spillf(err, "creating spill directory %s", cfg.TempDir)
	}
	m := &RunManager{cfg: cfg, budget: budget, force: force}
	m.mu.liveRuns = make(map[string]struct{})
	return m, nil
}

// ShouldSpill reports whether an operator buffering cur bytes in memory must
// flush to a run before buffering more.
func (m *RunManager) ShouldSpill(cur int64) bool {
	return m.force || cur > m.budget
}

// NumLiveRuns returns the number of runs currently allocated on storage.
func (m *RunManager) NumLiveRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mu.liveRuns)
}

// Close deletes every run still allocated. It is the backstop for error and
// cancellation paths; on clean paths operators have already deleted their
// runs and this is a no-op.
func (m *RunManager) Close() error {
	m.mu.Lock()
	paths := make([]string, 0, len(m.mu.liveRuns))
	for p := range m.mu.liveRuns {
		paths = append(paths, p)
	}
	m.mu.Unlock()

	var firstErr error
	for _, p := range paths {
		if err := m.cfg.FS.Remove(p); err != nil && firstErr == nil {
			firstErr = execerror.Spillf(err, "removing leaked run %s", p)
		}
		m.unregister(p)
	}
	if firstErr != nil {
		return errors.Wrap(firstErr, "closing run manager")
	}
	return nil
}

func (m *RunManager) newRunPath() string {
	return m.cfg.FS.PathJoin(m.cfg.TempDir, "run-"+uuid.NewString())
}

func (m *RunManager) register(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.liveRuns[path] = struct{}{}
}

func (m *RunManager) unregister(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mu.liveRuns, path)
}
