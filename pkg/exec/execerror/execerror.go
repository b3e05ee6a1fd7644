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

// Package execerror defines the error taxonomy of the execution engine:
// configuration errors, detected before any streaming starts, and spill I/O
// errors, which abort a running pipeline. Limit-driven early termination is
// not an error and never surfaces through this package.
package execerror

import "github.com/cockroachdb/errors"

// Config marks configuration errors: invalid sort keys, non-joinable
// schemas. These are detected synchronously and are not retryable.
var Config = errors.New("configuration error")

// Spill marks spill I/O errors: run write/read failures, storage
// exhaustion. These are fatal to the pipeline that hit them.
var Spill = errors.New("spill i/o error")

// Configf returns a new configuration error.
func Configf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), Config)
}

// Spillf wraps err as a spill I/O error.
func Spillf(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), Spill)
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return errors.Is(err, Config) }

// IsSpill reports whether err is a spill I/O error.
func IsSpill(err error) bool { return errors.Is(err, Spill) }
