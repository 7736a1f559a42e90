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

import "strconv"

// Outcome is the allele call for one (read, position) pair.
type Outcome int8

const (
	// Wildtype: the read's bases match the position's wildtype allele.
	Wildtype Outcome = iota
	// Mutant: the read's bases match one of the configured mutant alleles;
	// Call.MutIndex says which.
	Mutant
	// Ambiguous: sequenced but unrecognized — an unconfigured base
	// combination, an indel inside the span, or a base below the quality
	// threshold.
	Ambiguous
	// NotCovered: the position lies outside the read's aligned span.
	NotCovered
)

var outcomeTags = [...]string{"WT", "MUT", "AMB", "NC"}

func (o Outcome) String() string { return outcomeTags[o] }

// Call is the outcome at a single position of interest for one read.
type Call struct {
	Pos     *Position
	Outcome Outcome
	// MutIndex is the 0-based index into Pos.Mutants when Outcome == Mutant,
	// -1 otherwise.
	MutIndex int
}

// Tag renders the call for pattern assembly and output cells.  Mutant tags
// carry the 1-based allele index so distinct mutant alleles at one position
// stay distinguishable in combined patterns.
func (c Call) Tag() string {
	if c.Outcome == Mutant {
		return "MUT" + strconv.Itoa(c.MutIndex+1)
	}
	return c.Outcome.String()
}

// basesEqualFold compares read bases against an allele string, ignoring
// ASCII case.  Alleles are stored uppercase, so only the read side is
// folded.
func basesEqualFold(bases []byte, allele string) bool {
	if len(bases) != len(allele) {
		return false
	}
	for i := 0; i < len(bases); i++ {
		b := bases[i]
		if 'a' <= b && b <= 'z' {
			b -= 'a' - 'A'
		}
		if b != allele[i] {
			return false
		}
	}
	return true
}

// classifySpan compares extracted read bases against a position's configured
// alleles: exact wildtype match wins, then the first matching mutant allele
// in declared order, and anything else is Ambiguous (sequenced but
// unrecognized, as opposed to NotCovered).
func classifySpan(bases []byte, pos *Position) Call {
	if basesEqualFold(bases, pos.Wildtype) {
		return Call{Pos: pos, Outcome: Wildtype, MutIndex: -1}
	}
	for i, m := range pos.Mutants {
		if basesEqualFold(bases, m) {
			return Call{Pos: pos, Outcome: Mutant, MutIndex: i}
		}
	}
	return Call{Pos: pos, Outcome: Ambiguous, MutIndex: -1}
}
