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

// Package exec implements the streaming operators of the engine: sources,
// an out-of-core sorter, a cross joiner and a row limiter, all speaking the
// pull-based execop.Operator protocol over coldata batches.
//
// The limiter is the sole owner of the row-limit decision; it propagates the
// bound upstream as the remaining argument of Next, so producers stop
// generating data at the source instead of having output discarded after
// the fact.
package exec
