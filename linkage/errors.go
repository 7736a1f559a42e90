// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package linkage

import "fmt"

// ValidationError reports a malformed positions-of-interest input: a bad
// coordinate pair, an allele whose length doesn't match the position span,
// duplicate alleles, and so on.  It is always fatal and always raised before
// any scoring begins.
type ValidationError struct {
	// Line is the 1-based line number in the positions file, or 0 when the
	// error isn't tied to a single input line.
	Line  int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Line == 0 {
		if e.Field == "" {
			return "linkage: invalid positions: " + e.Msg
		}
		return fmt.Sprintf("linkage: invalid positions (%s): %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("linkage: positions line %d, field %s: %s", e.Line, e.Field, e.Msg)
}

// DecodeError reports corrupt or truncated alignment input.  It is fatal for
// the remainder of the record stream; any partially written output is left
// under its temporary name.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("linkage: decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IOError reports an output-sink or input-open failure.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("linkage: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
