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

import "github.com/grailbio/hts/sam"

// Translation of reference-genome coordinates to offsets within an aligned
// read's sequence.  The walk maintains two cursors: the reference cursor is
// advanced by operations that consume reference (match/equal/mismatch,
// deletion, reference-skip) and the read cursor by operations that consume
// the read sequence (match/equal/mismatch, insertion, soft-clip).  Only
// operations consuming both can claim a target coordinate; clipped bases are
// treated as unmapped, so a target reachable only through them maps to
// nothing.

type mapStatus int8

const (
	// mapOK: the target reference coordinate is covered by an aligned read
	// base.
	mapOK mapStatus = iota
	// mapDeleted: the target falls inside a deletion or reference-skip.
	mapDeleted
	// mapOutOfRange: the target is before the alignment start, past its end,
	// or reachable only through clipped bases.
	mapOutOfRange
)

// mapRefCoord maps one reference coordinate to a read-sequence offset.
func mapRefCoord(cigar sam.Cigar, refStart, target int) (readOff int, st mapStatus) {
	if target < refStart {
		return 0, mapOutOfRange
	}
	posInRef := refStart
	posInRead := 0
	for _, co := range cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			if target < posInRef+n {
				return posInRead + (target - posInRef), mapOK
			}
			posInRef += n
			posInRead += n
		case sam.CigarDeletion, sam.CigarSkipped:
			if target < posInRef+n {
				return 0, mapDeleted
			}
			posInRef += n
		case sam.CigarInsertion, sam.CigarSoftClipped:
			posInRead += n
		}
		// Hard clips and padding consume neither sequence; remaining op types
		// are rejected up front by the scorer's CIGAR validity check.
	}
	return 0, mapOutOfRange
}

type spanStatus int8

const (
	spanOK spanStatus = iota
	// spanGapped: a deletion or reference-skip interrupts the span.
	spanGapped
	// spanSplit: the span's read offsets are not contiguous (an insertion sits
	// inside the span).
	spanSplit
	// spanNotCovered: at least one reference offset in the span is outside
	// the read's aligned range.
	spanNotCovered
)

// extractSpan maps every reference offset in [start, end) and, when they all
// land on contiguous read bases, returns the covering read-offset range
// [readStart, readEnd).  NotCovered takes precedence over the
// deletion/insertion outcomes: a span that runs off the alignment is "not
// sequenced here" regardless of what else happens inside it.
func extractSpan(cigar sam.Cigar, refStart, start, end int) (readStart, readEnd int, st spanStatus) {
	prev := -1
	gapped := false
	split := false
	for pos := start; pos < end; pos++ {
		off, mst := mapRefCoord(cigar, refStart, pos)
		switch mst {
		case mapOutOfRange:
			return 0, 0, spanNotCovered
		case mapDeleted:
			gapped = true
		default:
			if prev == -1 {
				readStart = off
			} else if off != prev+1 {
				split = true
			}
			prev = off
		}
	}
	if gapped {
		return 0, 0, spanGapped
	}
	if split {
		return 0, 0, spanSplit
	}
	return readStart, prev + 1, spanOK
}
