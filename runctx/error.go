// Copyright 2026 The Latticeproof Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runctx

// ErrorRecorder records client-contract-violation errors (the third
// kind this module distinguishes, alongside panics for programming
// errors and Indeterminate for numeric inconclusiveness) for
// observability, separately from returning them to the caller.
//
// Use NoOpErrorRecorder for zero overhead.
type ErrorRecorder interface {
	RecordError(err error, metadata map[string]interface{})
}

// NoOpErrorRecorder discards everything.
type NoOpErrorRecorder struct{}

func (NoOpErrorRecorder) RecordError(error, map[string]interface{}) {}
