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

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/exec/execop"
)

// Materialize drains op into a single batch holding the full result. The
// operator must already be initialized; the caller remains responsible for
// closing it.
func Materialize(ctx context.Context, op execop.Operator) (*coldata.Batch, error) {
	out := coldata.NewBatch(op.Schema().Types())
	for {
		b, err := op.Next(ctx, execop.NoLimit)
		if err != nil {
			return nil, err
		}
		if b.Length() == 0 {
			return out, nil
		}
		out.AppendRows(b, 0, b.Length())
	}
}
