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
	"time"

	"github.com/spf13/cobra"

	"github.com/vecflow/vecflow/pkg/exec"
)

func newCrossJoinCmd(flags *rootFlags) *cobra.Command {
	var rows int64
	var limit int
	cmd := &cobra.Command{
		Use:   "crossjoin",
		Short: "cross join two integer series under a row limit",
		Long: `Cross join two integer series of the given size and collect the first
--limit rows. With the limit pushed down into the join, the elapsed time is
proportional to the limit, not to the size of the full product.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := flags.newEngine()
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			join, err := e.CrossJoin(exec.NewRange("left", rows), exec.NewRange("right", rows))
			if err != nil {
				return err
			}
			head, err := e.Limit(join, limit)
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := e.Collect(cmd.Context(), head)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "first %d of %d x %d cross join in %s\n",
				res.Length(), rows, rows, elapsed)
			l, r := res.ColVec(0).Int64(), res.ColVec(1).Int64()
			for i := 0; i < res.Length(); i++ {
				fmt.Fprintf(out, "(%d, %d)\n", l[i], r[i])
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&rows, "rows", 100000, "rows per side")
	cmd.Flags().IntVar(&limit, "limit", 5, "rows to collect")
	return cmd
}
