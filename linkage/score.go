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
	"strings"

	"github.com/grailbio/hts/sam"
)

// seqNibbleToASCII is the .bam seq nibble -> ASCII mapping.
var seqNibbleToASCII = [...]byte{'=', 'A', 'C', 'M', 'G', 'R', 'S', 'V', 'T', 'W', 'Y', 'H', 'K', 'D', 'B', 'N'}

// expandSeq unpacks a nibble-encoded BAM sequence into buf, reusing its
// backing array.  Expanding into a per-Scorer buffer keeps the inner loop
// allocation-free.
func expandSeq(buf []byte, seq sam.Seq) []byte {
	buf = buf[:0]
	for _, d := range seq.Seq {
		buf = append(buf, seqNibbleToASCII[d>>4], seqNibbleToASCII[d&0xf])
	}
	return buf[:seq.Length]
}

// ReadResult is the per-read linkage record: one Call per overlapped
// position, in ascending start order, plus the derived combined pattern.
type ReadResult struct {
	Name    string
	RefName string
	Calls   []Call
	// Pattern is the '-'-joined sequence of call tags.  The per-position
	// ordering is deterministic, so identical allele combinations always
	// render identical patterns and the string can serve as a downstream
	// grouping key.
	Pattern string
}

// Scorer classifies alignment records against an immutable position Table.
// It keeps no state across records other than reusable scratch buffers, so
// scoring is a pure function of (record, table) and any number of Scorers
// may run concurrently over the same Table.  A single Scorer is not safe for
// concurrent use; give each worker its own.
type Scorer struct {
	table       *Table
	minBaseQual byte
	seqBuf      []byte
	// anomalies counts records whose CIGAR disagrees with their sequence
	// length.  Such records are skipped, never scored.
	anomalies int64
}

// NewScorer returns a Scorer over the given table.  Bases with quality below
// minBaseQual make a position's call Ambiguous; 0 disables the check.
func NewScorer(table *Table, minBaseQual int) *Scorer {
	return &Scorer{
		table:       table,
		minBaseQual: byte(minBaseQual),
		seqBuf:      make([]byte, 0, 512),
	}
}

// Anomalies returns the number of records skipped so far because their CIGAR
// implied read consumption inconsistent with the record's sequence length.
func (s *Scorer) Anomalies() int64 { return s.anomalies }

// Score produces the linkage record for one alignment record, or nil when
// the record is unmapped, overlaps no position of interest, or is skipped as
// a coordinate anomaly.  The record is only read, never retained.
func (s *Scorer) Score(rec *sam.Record) *ReadResult {
	if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil {
		return nil
	}
	if len(rec.Cigar) == 0 || !rec.Cigar.IsValid(rec.Seq.Length) {
		s.anomalies++
		return nil
	}
	refSpan, _ := rec.Cigar.Lengths()
	if refSpan <= 0 {
		// Fully clipped or insertion-only alignment; nothing on the reference
		// to overlap.
		return nil
	}
	refName := rec.Ref.Name()
	overlaps := s.table.Overlapping(refName, rec.Pos, rec.Pos+refSpan)
	if len(overlaps) == 0 {
		return nil
	}
	s.seqBuf = expandSeq(s.seqBuf, rec.Seq)
	calls := make([]Call, len(overlaps))
	for i, p := range overlaps {
		calls[i] = s.callAt(rec, p)
	}
	var pattern strings.Builder
	for i, c := range calls {
		if i != 0 {
			pattern.WriteByte('-')
		}
		pattern.WriteString(c.Tag())
	}
	return &ReadResult{
		Name:    rec.Name,
		RefName: refName,
		Calls:   calls,
		Pattern: pattern.String(),
	}
}

// callAt classifies a single position against the current record.
func (s *Scorer) callAt(rec *sam.Record, p *Position) Call {
	readStart, readEnd, st := extractSpan(rec.Cigar, rec.Pos, p.Start, p.End)
	switch st {
	case spanNotCovered:
		return Call{Pos: p, Outcome: NotCovered, MutIndex: -1}
	case spanGapped, spanSplit:
		return Call{Pos: p, Outcome: Ambiguous, MutIndex: -1}
	}
	if s.minBaseQual > 0 && readEnd <= len(rec.Qual) {
		for off := readStart; off < readEnd; off++ {
			if rec.Qual[off] < s.minBaseQual {
				return Call{Pos: p, Outcome: Ambiguous, MutIndex: -1}
			}
		}
	}
	return classifySpan(s.seqBuf[readStart:readEnd], p)
}
