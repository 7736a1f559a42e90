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
	"fmt"
	"sort"
)

// Position is one genomic position of interest: a [Start, End) interval on a
// reference sequence, annotated with the wildtype allele and one or more
// candidate mutant alleles.  All allele strings have length End - Start and
// are stored uppercase.  Positions are immutable once the Table holding them
// has been built.
type Position struct {
	RefName  string
	Start    int // 0-based, inclusive
	End      int // exclusive
	Label    string
	Wildtype string
	Mutants  []string
}

// Span returns the number of reference bases the position covers.
func (p *Position) Span() int { return p.End - p.Start }

// validatePosition checks the single-row invariants.  It returns the name of
// the offending field and a description, or ("", "") if the row is valid.
// Callers with line-number context wrap the result in a ValidationError.
func validatePosition(p *Position) (field, msg string) {
	if p.RefName == "" {
		return "reference_name", "empty reference name"
	}
	if p.Start < 0 {
		return "start", fmt.Sprintf("negative start coordinate %d", p.Start)
	}
	if p.End <= p.Start {
		return "end", fmt.Sprintf("end %d not greater than start %d", p.End, p.Start)
	}
	if p.Label == "" {
		return "label", "empty label"
	}
	span := p.Span()
	if len(p.Wildtype) != span {
		return "wildtype_allele", fmt.Sprintf("allele %q has length %d, span is %d", p.Wildtype, len(p.Wildtype), span)
	}
	if len(p.Mutants) == 0 {
		return "mutant_allele_1", "at least one mutant allele required"
	}
	seen := map[string]bool{p.Wildtype: true}
	for i, m := range p.Mutants {
		field := fmt.Sprintf("mutant_allele_%d", i+1)
		if len(m) != span {
			return field, fmt.Sprintf("allele %q has length %d, span is %d", m, len(m), span)
		}
		if seen[m] {
			return field, fmt.Sprintf("duplicate allele %q", m)
		}
		seen[m] = true
	}
	return "", ""
}

// Table is an immutable collection of positions of interest, grouped by
// reference name and sorted by ascending start within each group.  It is
// built once before scoring begins and is safe for concurrent readers.
type Table struct {
	byRef map[string][]*Position
	// all lists every position in output-column order: reference groups in
	// first-appearance order, ascending start within each group.
	all []*Position
	ord map[*Position]int
}

// BuildTable validates rows and assembles them into a Table.  Rows need not
// arrive sorted; the table sorts each reference group itself.  A
// *ValidationError is returned for a bad coordinate pair, an allele/span
// length mismatch, duplicate alleles within one position, a duplicate label,
// or two positions overlapping each other on the same reference.
func BuildTable(rows []Position) (*Table, error) {
	t := &Table{
		byRef: make(map[string][]*Position),
		ord:   make(map[*Position]int),
	}
	labels := make(map[string]bool)
	var refOrder []string
	for i := range rows {
		p := &rows[i]
		if field, msg := validatePosition(p); field != "" {
			return nil, &ValidationError{Field: field, Msg: msg}
		}
		if labels[p.Label] {
			return nil, &ValidationError{Field: "label", Msg: fmt.Sprintf("duplicate label %q", p.Label)}
		}
		labels[p.Label] = true
		if _, ok := t.byRef[p.RefName]; !ok {
			refOrder = append(refOrder, p.RefName)
		}
		t.byRef[p.RefName] = append(t.byRef[p.RefName], p)
	}
	for _, refName := range refOrder {
		group := t.byRef[refName]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Start < group[j].Start })
		// The overlap query below relies on End being ascending along with
		// Start, which holds iff positions on one reference are disjoint.
		for i := 1; i < len(group); i++ {
			if group[i].Start < group[i-1].End {
				return nil, &ValidationError{Field: "start", Msg: fmt.Sprintf(
					"positions %q and %q overlap on %s", group[i-1].Label, group[i].Label, refName)}
			}
		}
		for _, p := range group {
			t.ord[p] = len(t.all)
			t.all = append(t.all, p)
		}
	}
	return t, nil
}

// Overlapping returns, in ascending start order, every position whose
// [Start, End) interval intersects [start, end) on the named reference, or
// nil if there is none.  The returned slice aliases the table's storage and
// must not be modified.
//
// Binary search finds the first position with End > start; since positions
// within a reference are disjoint and start-sorted, End is ascending too, so
// a forward scan while Start < end collects exactly the intersecting set in
// O(log n + k).
func (t *Table) Overlapping(refName string, start, end int) []*Position {
	group := t.byRef[refName]
	lo := sort.Search(len(group), func(i int) bool { return group[i].End > start })
	hi := lo
	for hi < len(group) && group[hi].Start < end {
		hi++
	}
	if lo == hi {
		return nil
	}
	return group[lo:hi]
}

// Positions returns every position in the table's stable output order.
func (t *Table) Positions() []*Position { return t.all }

// ordinal returns the position's index within Positions().
func (t *Table) ordinal(p *Position) int { return t.ord[p] }
