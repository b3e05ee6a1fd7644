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

package coldata

import (
	"bytes"
	"fmt"

	"github.com/vecflow/vecflow/pkg/col/coltypes"
)

// Vec is a single column of values of one kind. Storage is a raw slice per
// kind; exactly one of the slices is in use, selected by the kind tag.
type Vec struct {
	t coltypes.T

	int64s   []int64
	float64s []float64
	bytes    [][]byte
	bools    []bool
}

// NewVec returns an empty Vec of the given kind with the given capacity.
func NewVec(t coltypes.T, capacity int) *Vec {
	v := &Vec{t: t}
	switch t {
	case coltypes.Int64:
		v.int64s = make([]int64, 0, capacity)
	case coltypes.Float64:
		v.float64s = make([]float64, 0, capacity)
	case coltypes.Bytes:
		v.bytes = make([][]byte, 0, capacity)
	case coltypes.Bool:
		v.bools = make([]bool, 0, capacity)
	default:
		panic(fmt.Sprintf("unhandled type %s", t))
	}
	return v
}

// Type returns the kind of values this Vec holds.
func (v *Vec) Type() coltypes.T { return v.t }

// Int64 returns the underlying int64 slice.
func (v *Vec) Int64() []int64 { return v.int64s }

// Float64 returns the underlying float64 slice.
func (v *Vec) Float64() []float64 { return v.float64s }

// Bytes returns the underlying [][]byte slice.
func (v *Vec) Bytes() [][]byte { return v.bytes }

// Bool returns the underlying bool slice.
func (v *Vec) Bool() []bool { return v.bools }

// Len returns the number of values stored.
func (v *Vec) Len() int {
	switch v.t {
	case coltypes.Int64:
		return len(v.int64s)
	case coltypes.Float64:
		return len(v.float64s)
	case coltypes.Bytes:
		return len(v.bytes)
	case coltypes.Bool:
		return len(v.bools)
	default:
		panic(fmt.Sprintf("unhandled type %s", v.t))
	}
}

// AppendInt64 appends a single int64 value.
func (v *Vec) AppendInt64(x int64) { v.int64s = append(v.int64s, x) }

// AppendFloat64 appends a single float64 value.
func (v *Vec) AppendFloat64(x float64) { v.float64s = append(v.float64s, x) }

// AppendBytes appends a single byte-string value.
func (v *Vec) AppendBytes(x []byte) { v.bytes = append(v.bytes, x) }

// AppendBool appends a single bool value.
func (v *Vec) AppendBool(x bool) { v.bools = append(v.bools, x) }

// AppendRange appends values src[start:end] to v. The kinds must match.
func (v *Vec) AppendRange(src *Vec, start, end int) {
	switch v.t {
	case coltypes.Int64:
		v.int64s = append(v.int64s, src.int64s[start:end]...)
	case coltypes.Float64:
		v.float64s = append(v.float64s, src.float64s[start:end]...)
	case coltypes.Bytes:
		v.bytes = append(v.bytes, src.bytes[start:end]...)
	case coltypes.Bool:
		v.bools = append(v.bools, src.bools[start:end]...)
	default:
		panic(fmt.Sprintf("unhandled type %s", v.t))
	}
}

// AppendRepeat appends the value src[i] to v n times.
func (v *Vec) AppendRepeat(src *Vec, i, n int) {
	switch v.t {
	case coltypes.Int64:
		x := src.int64s[i]
		for k := 0; k < n; k++ {
			v.int64s = append(v.int64s, x)
		}
	case coltypes.Float64:
		x := src.float64s[i]
		for k := 0; k < n; k++ {
			v.float64s = append(v.float64s, x)
		}
	case coltypes.Bytes:
		x := src.bytes[i]
		for k := 0; k < n; k++ {
			v.bytes = append(v.bytes, x)
		}
	case coltypes.Bool:
		x := src.bools[i]
		for k := 0; k < n; k++ {
			v.bools = append(v.bools, x)
		}
	default:
		panic(fmt.Sprintf("unhandled type %s", v.t))
	}
}

// gather replaces the contents of v with src[sels[0]], src[sels[1]], ...
func (v *Vec) gather(src *Vec, sels []int) {
	switch v.t {
	case coltypes.Int64:
		v.int64s = v.int64s[:0]
		for _, s := range sels {
			v.int64s = append(v.int64s, src.int64s[s])
		}
	case coltypes.Float64:
		v.float64s = v.float64s[:0]
		for _, s := range sels {
			v.float64s = append(v.float64s, src.float64s[s])
		}
	case coltypes.Bytes:
		v.bytes = v.bytes[:0]
		for _, s := range sels {
			v.bytes = append(v.bytes, src.bytes[s])
		}
	case coltypes.Bool:
		v.bools = v.bools[:0]
		for _, s := range sels {
			v.bools = append(v.bools, src.bools[s])
		}
	default:
		panic(fmt.Sprintf("unhandled type %s", v.t))
	}
}

// truncate shortens the Vec to n values.
func (v *Vec) truncate(n int) {
	switch v.t {
	case coltypes.Int64:
		v.int64s = v.int64s[:n]
	case coltypes.Float64:
		v.float64s = v.float64s[:n]
	case coltypes.Bytes:
		v.bytes = v.bytes[:n]
	case coltypes.Bool:
		v.bools = v.bools[:n]
	default:
		panic(fmt.Sprintf("unhandled type %s", v.t))
	}
}

// MemSize returns an estimate of the memory footprint of the Vec in bytes.
func (v *Vec) MemSize() int64 {
	switch v.t {
	case coltypes.Int64:
		return int64(cap(v.int64s)) * 8
	case coltypes.Float64:
		return int64(cap(v.float64s)) * 8
	case coltypes.Bytes:
		size := int64(cap(v.bytes)) * 24
		for _, b := range v.bytes {
			size += int64(len(b))
		}
		return size
	case coltypes.Bool:
		return int64(cap(v.bools))
	default:
		panic(fmt.Sprintf("unhandled type %s", v.t))
	}
}

// CompareAt compares a[i] with b[j] and returns -1, 0 or 1. The two Vecs must
// hold the same kind. Bools order false before true.
func CompareAt(a *Vec, i int, b *Vec, j int) int {
	switch a.t {
	case coltypes.Int64:
		x, y := a.int64s[i], b.int64s[j]
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case coltypes.Float64:
		x, y := a.float64s[i], b.float64s[j]
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case coltypes.Bytes:
		return bytes.Compare(a.bytes[i], b.bytes[j])
	case coltypes.Bool:
		x, y := a.bools[i], b.bools[j]
		switch {
		case !x && y:
			return -1
		case x && !y:
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("unhandled type %s", a.t))
	}
}
