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

// Package coltypes defines the closed set of column value kinds understood by
// the execution engine. Every column, in memory or in a spilled run, holds
// exactly one of these kinds; operators dispatch on the kind tag rather than
// on runtime type inspection.
package coltypes

import "fmt"

// T is a column value kind.
type T int

const (
	// Int64 is a column of 64-bit signed integers.
	Int64 T = iota
	// Float64 is a column of 64-bit floating point numbers.
	Float64
	// Bytes is a column of variable-length byte strings.
	Bytes
	// Bool is a column of booleans.
	Bool
)

func (t T) String() string {
	switch t {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Bytes:
		return "bytes"
	case Bool:
		return "bool"
	default:
		panic(fmt.Sprintf("unhandled type %d", int(t)))
	}
}
