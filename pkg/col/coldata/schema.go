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
	"strings"

	"github.com/vecflow/vecflow/pkg/col/coltypes"
)

// Column describes one named, typed column of a schema.
type Column struct {
	Name string
	T    coltypes.T
}

// Schema is the ordered set of columns shared by all batches of one stream.
type Schema []Column

// Types returns the column kinds of the schema, in order.
func (s Schema) Types() []coltypes.T {
	types := make([]coltypes.T, len(s))
	for i, c := range s {
		types[i] = c.T
	}
	return types
}

// Concat returns the schema formed by the columns of s followed by the
// columns of o.
func (s Schema) Concat(o Schema) Schema {
	out := make(Schema, 0, len(s)+len(o))
	out = append(out, s...)
	out = append(out, o...)
	return out
}

// Disjoint reports whether no column name appears in both s and o.
func (s Schema) Disjoint(o Schema) bool {
	names := make(map[string]struct{}, len(s))
	for _, c := range s {
		names[c.Name] = struct{}{}
	}
	for _, c := range o {
		if _, ok := names[c.Name]; ok {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, c := range s {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name)
		sb.WriteByte(' ')
		sb.WriteString(c.T.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
