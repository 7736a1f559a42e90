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

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
)

// The positions-of-interest file is a BED-derived tab-delimited table:
//
//   reference_name  start  end  label  wildtype_allele  mutant_allele_1 [mutant_allele_2 ...]
//
// start/end are 0-based half-open, every allele has length end - start, and
// lines starting with '#' are comments.

const minPositionCols = 6

var positionColNames = [...]string{
	"reference_name", "start", "end", "label", "wildtype_allele", "mutant_allele_1",
}

// normalizeAllele uppercases an allele string and verifies it only contains
// A/C/G/T/N.
func normalizeAllele(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty allele")
	}
	up := strings.ToUpper(s)
	for i := 0; i < len(up); i++ {
		switch up[i] {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return "", fmt.Errorf("allele %q contains non-base character %q", s, s[i])
		}
	}
	return up, nil
}

// ParsePositions reads the tab-delimited positions-of-interest format,
// returning one Position per data line.  Single-row invariants are checked
// here so the resulting *ValidationError can name the offending line and
// field; cross-row invariants are checked by BuildTable.
func ParsePositions(r io.Reader) ([]Position, error) {
	scanner := bufio.NewScanner(r)
	var rows []Position
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if len(fields) < minPositionCols {
			return nil, &ValidationError{Line: lineIdx, Field: positionColNames[len(fields)],
				Msg: fmt.Sprintf("%d columns, at least %d expected", len(fields), minPositionCols)}
		}
		var p Position
		p.RefName = fields[0]
		var err error
		if p.Start, err = strconv.Atoi(fields[1]); err != nil {
			return nil, &ValidationError{Line: lineIdx, Field: "start", Msg: fmt.Sprintf("not an integer: %q", fields[1])}
		}
		if p.End, err = strconv.Atoi(fields[2]); err != nil {
			return nil, &ValidationError{Line: lineIdx, Field: "end", Msg: fmt.Sprintf("not an integer: %q", fields[2])}
		}
		p.Label = fields[3]
		if p.Wildtype, err = normalizeAllele(fields[4]); err != nil {
			return nil, &ValidationError{Line: lineIdx, Field: "wildtype_allele", Msg: err.Error()}
		}
		for i, raw := range fields[5:] {
			var m string
			if m, err = normalizeAllele(raw); err != nil {
				return nil, &ValidationError{Line: lineIdx, Field: fmt.Sprintf("mutant_allele_%d", i+1), Msg: err.Error()}
			}
			p.Mutants = append(p.Mutants, m)
		}
		if field, msg := validatePosition(&p); field != "" {
			return nil, &ValidationError{Line: lineIdx, Field: field, Msg: msg}
		}
		rows = append(rows, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// LoadTable reads a (possibly gzipped) positions-of-interest file and builds
// the Table.
func LoadTable(ctx context.Context, path string) (t *Table, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer file.CloseAndReport(ctx, in, &err)
	reader, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	rows, err := ParsePositions(reader)
	if err != nil {
		return nil, err
	}
	return BuildTable(rows)
}
