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

// Package execop defines the operator capability shared by every stage of a
// pipeline. Execution is pull-based: a downstream operator calls Next on its
// input, which recursively pulls from its own inputs. Nothing is produced
// without downstream demand.
package execop

import (
	"context"
	"math"

	"github.com/vecflow/vecflow/pkg/col/coldata"
)

// NoLimit is the remaining-rows hint passed to Next when the caller wants
// the stream without any bound.
const NoLimit = math.MaxInt

// Operator is a single stage of a pipeline.
//
// Next returns the next batch of the stream, or a zero-length batch once the
// stream is exhausted. remaining is the number of rows the caller still
// wants: an operator must not return more than remaining rows in one call
// and must not pull more input than it needs to produce them. Once an
// operator has returned a zero-length batch it keeps returning zero-length
// batches.
//
// Close releases all resources held by the operator and its inputs,
// including any spilled state. It is idempotent and must be called exactly
// on every execution path: success, error and early termination.
type Operator interface {
	Init(ctx context.Context) error
	Next(ctx context.Context, remaining int) (*coldata.Batch, error)
	Close(ctx context.Context) error
	Schema() coldata.Schema
}

// OneInputNode is embedded by operators with exactly one input.
type OneInputNode struct {
	Input Operator
}

// NewOneInputNode returns a OneInputNode over the given input.
func NewOneInputNode(input Operator) OneInputNode {
	return OneInputNode{Input: input}
}

// TwoInputNode is embedded by operators with exactly two inputs.
type TwoInputNode struct {
	InputOne Operator
	InputTwo Operator
}

// NewTwoInputNode returns a TwoInputNode over the given inputs.
func NewTwoInputNode(inputOne, inputTwo Operator) TwoInputNode {
	return TwoInputNode{InputOne: inputOne, InputTwo: inputTwo}
}
