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

package cli

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/vecflow/vecflow/pkg/exec"
)

func newSortCmd(flags *rootFlags) *cobra.Command {
	var rows int64
	var desc bool
	var seed int64
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "sort a shuffled integer series, spilling to disk if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := flags.newEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			rng := rand.New(rand.NewSource(seed))
			vals := make([]int64, rows)
			for i, p := range rng.Perm(int(rows)) {
				vals[i] = int64(p)
			}
			op, err := e.Sort(exec.NewInt64Series("idx", vals), exec.SortKey{Desc: desc})
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := e.Collect(cmd.Context(), op)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			col := res.ColVec(0).Int64()
			fmt.Fprintf(out, "sorted %d rows in %s (desc=%v)\n", res.Length(), elapsed, desc)
			if len(col) > 0 {
				head, tail := col[:min(5, len(col))], col[max(0, len(col)-5):]
				fmt.Fprintf(out, "head: %v\ntail: %v\n", head, tail)
			}
			fmt.Fprintf(out, "live spill runs after collect: %d\n", e.RunManager().NumLiveRuns())
			return nil
		},
	}
	cmd.Flags().Int64Var(&rows, "rows", 100000, "number of rows to sort")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().Int64Var(&seed, "seed", 1, "shuffle seed")
	return cmd
}
