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
	"encoding/csv"
	"fmt"
	"io"

	"github.com/grailbio/base/tsv"
)

// Output layout: one row per scored read, with a fixed superset of position
// columns across the whole run.  Columns are
//
//   read_id, reference_name, <one column per position label>, combined_pattern
//
// and a position's cell holds the outcome tag, or is left empty when the
// read does not overlap that position.  A leading '#' comment line states
// the layout so downstream consumers can't mistake an empty cell for a
// call.

const layoutComment = "# linkmut: fixed position-column layout; empty cell = read does not overlap that position\n"

// Sink consumes ReadResults and serializes them.  Implementations are
// single-writer; the runner funnels all rows through one Sink.
type Sink interface {
	Write(res *ReadResult) error
	// Flush writes any buffered rows and reports the first serialization
	// error.  Must be called once after the last Write.
	Flush() error
}

// rowCells renders a result into a reusable cell slice laid out per the
// header above.
type rowCells struct {
	table *Table
	cells []string
}

func newRowCells(table *Table) rowCells {
	return rowCells{
		table: table,
		cells: make([]string, 3+len(table.Positions())),
	}
}

func (rc *rowCells) header() []string {
	cells := rc.cells
	cells[0] = "read_id"
	cells[1] = "reference_name"
	for i, p := range rc.table.Positions() {
		cells[2+i] = p.Label
	}
	cells[len(cells)-1] = "combined_pattern"
	return cells
}

func (rc *rowCells) render(res *ReadResult) []string {
	cells := rc.cells
	for i := range cells {
		cells[i] = ""
	}
	cells[0] = res.Name
	cells[1] = res.RefName
	for _, c := range res.Calls {
		cells[2+rc.table.ordinal(c.Pos)] = c.Tag()
	}
	cells[len(cells)-1] = res.Pattern
	return cells
}

type csvSink struct {
	w  *csv.Writer
	rc rowCells
}

// NewCSVSink writes the layout comment and header immediately, then one CSV
// row per result.
func NewCSVSink(w io.Writer, table *Table) (Sink, error) {
	if _, err := io.WriteString(w, layoutComment); err != nil {
		return nil, err
	}
	s := &csvSink{w: csv.NewWriter(w), rc: newRowCells(table)}
	if err := s.w.Write(s.rc.header()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *csvSink) Write(res *ReadResult) error {
	return s.w.Write(s.rc.render(res))
}

func (s *csvSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

type tsvSink struct {
	w  *tsv.Writer
	rc rowCells
}

// NewTSVSink is the tab-delimited variant of NewCSVSink.
func NewTSVSink(w io.Writer, table *Table) (Sink, error) {
	s := &tsvSink{w: tsv.NewWriter(w), rc: newRowCells(table)}
	s.w.WriteString(layoutComment[:len(layoutComment)-1])
	if err := s.w.EndLine(); err != nil {
		return nil, err
	}
	if err := s.writeCells(s.rc.header()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *tsvSink) writeCells(cells []string) error {
	for _, c := range cells {
		s.w.WriteString(c)
	}
	return s.w.EndLine()
}

func (s *tsvSink) Write(res *ReadResult) error {
	return s.writeCells(s.rc.render(res))
}

func (s *tsvSink) Flush() error {
	return s.w.Flush()
}

// newSink picks the sink for a format name's base layout ("csv" or "tsv");
// compression wrapping happens in the runner.
func newSink(w io.Writer, table *Table, layout string) (Sink, error) {
	switch layout {
	case "csv":
		return NewCSVSink(w, table)
	case "tsv":
		return NewTSVSink(w, table)
	}
	return nil, fmt.Errorf("linkage.newSink: unknown layout %q", layout)
}
