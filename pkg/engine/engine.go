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

// Package engine wires operators into pipelines and drives them. An Engine
// carries the per-query execution configuration (streaming versus in-memory
// mode, the spill budget, the forced-spill switch) as explicit values;
// nothing is read from the process environment.
package engine

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/marusama/semaphore"
	"go.uber.org/zap"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/colcontainer"
	"github.com/vecflow/vecflow/pkg/exec"
	"github.com/vecflow/vecflow/pkg/exec/execop"
)

const (
	// DefaultMemoryBudget is the spill threshold used when none is given.
	DefaultMemoryBudget = 64 << 20
	// DefaultFDLimit bounds concurrently open spill files per engine.
	DefaultFDLimit = 128
)

// Config selects the execution mode and resources of an Engine.
type Config struct {
	// Streaming selects chunked, bounded-memory execution. When false the
	// spill path is disabled and operators run fully in memory.
	Streaming bool
	// MemoryBudget is the in-memory byte threshold above which spilling
	// operators flush to storage. Zero means DefaultMemoryBudget.
	MemoryBudget int64
	// ForceSpill makes spilling operators take the out-of-core path
	// regardless of the budget, for deterministic reproduction of
	// out-of-core behavior. Ignored when Streaming is false.
	ForceSpill bool
	// FS is the filesystem spill runs live on. Defaults to vfs.Default.
	FS vfs.FS
	// TempDir is the spill directory. Defaults under os.TempDir().
	TempDir string
	// FDLimit bounds open spill files. Zero means DefaultFDLimit.
	FDLimit int
	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// Engine builds and drives pipelines under one configuration.
type Engine struct {
	cfg Config
	log *zap.Logger
	mgr *colcontainer.RunManager
}

// New returns an Engine for the given configuration.
func New(cfg Config) (*Engine, error) {
	if cfg.FS == nil {
		cfg.FS = vfs.Default
	}
	if cfg.TempDir == "" {
		cfg.TempDir = filepath.Join(os.TempDir(), "vecflow-spill")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MemoryBudget == 0 {
		cfg.MemoryBudget = DefaultMemoryBudget
	}
	if cfg.FDLimit == 0 {
		cfg.FDLimit = DefaultFDLimit
	}
	budget, force := cfg.MemoryBudget, cfg.ForceSpill
	if !cfg.Streaming {
		budget, force = int64(math.MaxInt64), false
	}
	mgr, err := colcontainer.NewRunManager(colcontainer.Cfg{
		FS:          cfg.FS,
		TempDir:     cfg.TempDir,
		FDSemaphore: semaphore.New(cfg.FDLimit),
		Logger:      cfg.Logger,
	}, budget, force)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, log: cfg.Logger, mgr: mgr}, nil
}

// RunManager exposes the engine's spill manager, mainly so tests can assert
// that no runs outlive a query.
func (e *Engine) RunManager() *colcontainer.RunManager { return e.mgr }

// Sort returns input ordered by key.
func (e *Engine) Sort(input execop.Operator, key exec.SortKey) (execop.Operator, error) {
	return exec.NewSorter(input, key, e.mgr)
}

// CrossJoin returns the all-pairs combination of left and right.
func (e *Engine) CrossJoin(left, right execop.Operator) (execop.Operator, error) {
	return exec.NewCrossJoiner(left, right, e.mgr)
}

// Limit returns the first n rows of input.
func (e *Engine) Limit(input execop.Operator, n int) (execop.Operator, error) {
	return exec.NewLimiter(input, n)
}

// Collect drives the pipeline rooted at op to completion and returns the
// materialized result. The operator tree is closed on every path; on error
// no partial result is returned and all spill state is released. A pipeline
// cut short by a limit is a clean success.
func (e *Engine) Collect(ctx context.Context, op execop.Operator) (*coldata.Batch, error) {
	start := time.Now()
	if err := op.Init(ctx); err != nil {
		_ = op.Close(ctx)
		return nil, err
	}
	res, err := exec.Materialize(ctx, op)
	cerr := op.Close(ctx)
	if err != nil {
		return nil, err
	}
	if cerr != nil {
		return nil, cerr
	}
	e.log.Debug("collected pipeline",
		zap.Int("rows", res.Length()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Close releases the engine, deleting any spill runs that leaked past their
// query. Pipelines must not be driven after Close.
func (e *Engine) Close() error { return e.mgr.Close() }
