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

package colcontainer

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/vecflow/vecflow/pkg/col/coldata"
	"github.com/vecflow/vecflow/pkg/col/coltypes"
)

// Run file layout: a sequence of blocks, one batch per block. Each block is
// a little-endian uint32 length followed by a snappy-compressed payload.
// The payload is a uint32 row count followed by the column values in schema
// order; fixed-width kinds are packed back to back, bytes values are
// uint32-length-prefixed. The schema itself is not stored: a run is only
// ever read back by the operator that wrote it.

func encodeBatch(buf []byte, b *coldata.Batch) []byte {
	n := b.Length()
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n))
	for i := 0; i < b.Width(); i++ {
		v := b.ColVec(i)
		switch v.Type() {
		case coltypes.Int64:
			for _, x := range v.Int64()[:n] {
				buf = binary.LittleEndian.AppendUint64(buf, uint64(x))
			}
		case coltypes.Float64:
			for _, x := range v.Float64()[:n] {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
			}
		case coltypes.Bytes:
			for _, x := range v.Bytes()[:n] {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(len(x)))
				buf = append(buf, x...)
			}
		case coltypes.Bool:
			for _, x := range v.Bool()[:n] {
				if x {
					buf = append(buf, 1)
				} else {
					buf = append(buf, 0)
				}
			}
		}
	}
	return buf
}

func decodeBatch(types []coltypes.T, payload []byte) (*coldata.Batch, error) {
	if len(payload) < 4 {
		return nil, errors.Newf("truncated block: %d bytes", len(payload))
	}
	n := int(binary.LittleEndian.Uint32(payload))
	payload = payload[4:]
	b := coldata.NewBatchWithCapacity(types, n)
	for i, t := range types {
		v := b.ColVec(i)
		switch t {
		case coltypes.Int64:
			if len(payload) < 8*n {
				return nil, errors.Newf("truncated int64 column %d", i)
			}
			for k := 0; k < n; k++ {
				v.AppendInt64(int64(binary.LittleEndian.Uint64(payload[8*k:])))
			}
			payload = payload[8*n:]
		case coltypes.Float64:
			if len(payload) < 8*n {
				return nil, errors.Newf("truncated float64 column %d", i)
			}
			for k := 0; k < n; k++ {
				v.AppendFloat64(math.Float64frombits(binary.LittleEndian.Uint64(payload[8*k:])))
			}
			payload = payload[8*n:]
		case coltypes.Bytes:
			for k := 0; k < n; k++ {
				if len(payload) < 4 {
					return nil, errors.Newf("truncated bytes column %d", i)
				}
				l := int(binary.LittleEndian.Uint32(payload))
				payload = payload[4:]
				if len(payload) < l {
					return nil, errors.Newf("truncated bytes column %d", i)
				}
				val := make([]byte, l)
				copy(val, payload[:l])
				v.AppendBytes(val)
				payload = payload[l:]
			}
		case coltypes.Bool:
			if len(payload) < n {
				return nil, errors.Newf("truncated bool column %d", i)
			}
			for k := 0; k < n; k++ {
				v.AppendBool(payload[k] != 0)
			}
			payload = payload[n:]
		}
	}
	b.SetRowCount(n)
	return b, nil
}
