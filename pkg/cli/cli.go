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

// Package cli implements the vecflow command line: runnable demos of the
// streaming operators, mainly the out-of-core sort and the limited cross
// join.
package cli

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vecflow/vecflow/pkg/engine"
	"github.com/vecflow/vecflow/pkg/exec/execerror"
)

type rootFlags struct {
	streaming    bool
	memoryBudget string
	forceSpill   bool
	tempDir      string
	verbose      bool
}

// New returns the vecflow command tree.
func New() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "vecflow",
		Short:        "streaming columnar execution demos",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.BoolVar(&flags.streaming, "streaming", true, "chunked, bounded-memory execution")
	pf.StringVar(&flags.memoryBudget, "memory-budget", "64MiB", "spill threshold, e.g. 16MiB")
	pf.BoolVar(&flags.forceSpill, "force-spill", false, "always take the out-of-core path")
	pf.StringVar(&flags.tempDir, "temp-dir", "", "spill directory (default under the system temp dir)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log spill and pipeline events")

	root.AddCommand(newSortCmd(flags), newCrossJoinCmd(flags))
	return root
}

func (f *rootFlags) newEngine() (*engine.Engine, error) {
	budget, err := humanize.ParseBytes(f.memoryBudget)
	if err != nil {
		return nil, execerror.Configf("invalid memory budget %q: %v", f.memoryBudget, err)
	}
	logger := zap.NewNop()
	if f.verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}
	return engine.New(engine.Config{
		Streaming:    f.streaming,
		MemoryBudget: int64(budget),
		ForceSpill:   f.forceSpill,
		TempDir:      f.tempDir,
		Logger:       logger,
	})
}
