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
package linkage_test

import (
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/linkmut/linkage"
	"github.com/grailbio/testutil/assert"
)

var (
	chr1Ref, _ = sam.NewReference("chr1", "", "", 249250621, nil, nil)
	chr2Ref, _ = sam.NewReference("chr2", "", "", 243199373, nil, nil)
)

// newRecord builds a mapped record with uniform base quality.
func newRecord(name string, ref *sam.Reference, pos int, cigar sam.Cigar, seq string, qual byte) *sam.Record {
	quals := make([]byte, len(seq))
	for i := range quals {
		quals[i] = qual
	}
	return &sam.Record{
		Name:  name,
		Ref:   ref,
		Pos:   pos,
		MapQ:  60,
		Cigar: cigar,
		Seq:   sam.NewSeq([]byte(seq)),
		Qual:  quals,
	}
}

// seqWithBase returns length 'T's with a single substituted base at off.
func seqWithBase(length, off int, base byte) string {
	s := []byte(strings.Repeat("T", length))
	s[off] = base
	return string(s)
}

func snvTable(t *testing.T) *linkage.Table {
	table, err := linkage.BuildTable([]linkage.Position{
		{RefName: "chr1", Start: 120, End: 121, Label: "p120", Wildtype: "A", Mutants: []string{"G"}},
	})
	assert.NoError(t, err)
	return table
}

func TestScoreSingleSNV(t *testing.T) {
	// A 50M read at chr1:100 covers the position at 120 with its base at
	// read offset 20.
	table := snvTable(t)
	match50 := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 50)}
	tests := []struct {
		base        byte
		wantPattern string
	}{
		{'A', "WT"},
		{'G', "MUT1"},
		{'C', "AMB"},
	}
	for _, tt := range tests {
		sc := linkage.NewScorer(table, 0)
		rec := newRecord("read1", chr1Ref, 100, match50, seqWithBase(50, 20, tt.base), 40)
		res := sc.Score(rec)
		if res == nil {
			t.Fatalf("base %c: Score returned nil", tt.base)
		}
		assert.EQ(t, res.Name, "read1")
		assert.EQ(t, res.RefName, "chr1")
		assert.EQ(t, len(res.Calls), 1)
		assert.EQ(t, res.Pattern, tt.wantPattern)
	}
}

func TestScoreDeletionAcrossPosition(t *testing.T) {
	// 30M5D20M at chr1:100 deletes reference bases [130, 135); a position
	// inside the deletion is sequenced-but-gone, hence Ambiguous.
	table, err := linkage.BuildTable([]linkage.Position{
		{RefName: "chr1", Start: 131, End: 132, Label: "pdel", Wildtype: "A", Mutants: []string{"G"}},
	})
	assert.NoError(t, err)
	cigar := sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 30),
		sam.NewCigarOp(sam.CigarDeletion, 5),
		sam.NewCigarOp(sam.CigarMatch, 20),
	}
	sc := linkage.NewScorer(table, 0)
	res := sc.Score(newRecord("read1", chr1Ref, 100, cigar, strings.Repeat("A", 50), 40))
	if res == nil {
		t.Fatal("Score returned nil")
	}
	assert.EQ(t, res.Pattern, "AMB")
	assert.EQ(t, res.Calls[0].Outcome, linkage.Ambiguous)
}

func TestScorePartialOverlap(t *testing.T) {
	// A multi-base position straddling the alignment start is overlapped but
	// not fully sequenced: NotCovered, not Ambiguous.
	table, err := linkage.BuildTable([]linkage.Position{
		{RefName: "chr1", Start: 95, End: 105, Label: "pwide", Wildtype: "AAAAAAAAAA", Mutants: []string{"GGGGGGGGGG"}},
	})
	assert.NoError(t, err)
	match50 := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 50)}
	sc := linkage.NewScorer(table, 0)
	res := sc.Score(newRecord("read1", chr1Ref, 100, match50, strings.Repeat("A", 50), 40))
	if res == nil {
		t.Fatal("Score returned nil")
	}
	assert.EQ(t, res.Pattern, "NC")
	assert.EQ(t, res.Calls[0].Outcome, linkage.NotCovered)
}

func TestScoreSkipsNonOverlapping(t *testing.T) {
	table := snvTable(t)
	match50 := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 50)}
	sc := linkage.NewScorer(table, 0)
	for _, rec := range []*sam.Record{
		// Same reference, downstream of the position.
		newRecord("far", chr1Ref, 500, match50, strings.Repeat("A", 50), 40),
		// Same coordinates, different reference.
		newRecord("wrongref", chr2Ref, 100, match50, strings.Repeat("A", 50), 40),
	} {
		if res := sc.Score(rec); res != nil {
			t.Fatalf("%s: Score = %+v, want nil", rec.Name, res)
		}
	}
	assert.EQ(t, sc.Anomalies(), int64(0))
}

func TestScoreSkipsUnmapped(t *testing.T) {
	table := snvTable(t)
	sc := linkage.NewScorer(table, 0)
	rec := newRecord("unmapped", chr1Ref, 100, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 50)}, strings.Repeat("A", 50), 40)
	rec.Flags |= sam.Unmapped
	if res := sc.Score(rec); res != nil {
		t.Fatalf("Score = %+v, want nil", res)
	}
}

func TestScoreCountsAnomalies(t *testing.T) {
	// CIGAR claims 50 read bases, the record carries 10.
	table := snvTable(t)
	sc := linkage.NewScorer(table, 0)
	rec := newRecord("bad", chr1Ref, 100, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 50)}, strings.Repeat("A", 10), 40)
	if res := sc.Score(rec); res != nil {
		t.Fatalf("Score = %+v, want nil", res)
	}
	assert.EQ(t, sc.Anomalies(), int64(1))
}

func TestScoreMinBaseQual(t *testing.T) {
	table := snvTable(t)
	match50 := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 50)}
	seq := seqWithBase(50, 20, 'A')

	sc := linkage.NewScorer(table, 30)
	res := sc.Score(newRecord("lowq", chr1Ref, 100, match50, seq, 20))
	if res == nil {
		t.Fatal("Score returned nil")
	}
	assert.EQ(t, res.Pattern, "AMB")

	res = sc.Score(newRecord("highq", chr1Ref, 100, match50, seq, 40))
	if res == nil {
		t.Fatal("Score returned nil")
	}
	assert.EQ(t, res.Pattern, "WT")

	// 0 disables the check entirely.
	sc = linkage.NewScorer(table, 0)
	res = sc.Score(newRecord("noqcheck", chr1Ref, 100, match50, seq, 2))
	if res == nil {
		t.Fatal("Score returned nil")
	}
	assert.EQ(t, res.Pattern, "WT")
}

func TestScoreMultiPositionPattern(t *testing.T) {
	table, err := linkage.BuildTable([]linkage.Position{
		// Declared out of start order on purpose; calls must still come out
		// in ascending start order.
		{RefName: "chr1", Start: 140, End: 141, Label: "p140", Wildtype: "C", Mutants: []string{"T"}},
		{RefName: "chr1", Start: 110, End: 111, Label: "p110", Wildtype: "A", Mutants: []string{"G"}},
		{RefName: "chr1", Start: 125, End: 126, Label: "p125", Wildtype: "G", Mutants: []string{"A", "C"}},
	})
	assert.NoError(t, err)

	seq := []byte(strings.Repeat("T", 50))
	seq[10] = 'G' // p110: MUT1
	seq[25] = 'G' // p125: WT
	seq[40] = 'C' // p140: WT
	rec := newRecord("read1", chr1Ref, 100, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 50)}, string(seq), 40)

	sc := linkage.NewScorer(table, 0)
	res := sc.Score(rec)
	if res == nil {
		t.Fatal("Score returned nil")
	}
	assert.EQ(t, len(res.Calls), 3)
	assert.EQ(t, res.Calls[0].Pos.Label, "p110")
	assert.EQ(t, res.Calls[1].Pos.Label, "p125")
	assert.EQ(t, res.Calls[2].Pos.Label, "p140")
	assert.EQ(t, res.Pattern, "MUT1-WT-WT")

	// Scoring the same record again must give the identical pattern.
	res2 := sc.Score(rec)
	assert.EQ(t, res2.Pattern, res.Pattern)
}

func TestScoreSoftClippedRead(t *testing.T) {
	// 10S40M at chr1:110: the clip consumes read bases but no reference, so
	// the position at 120 sits at read offset 10 (clip) + 10 (match) = 20.
	table := snvTable(t)
	cigar := sam.Cigar{
		sam.NewCigarOp(sam.CigarSoftClipped, 10),
		sam.NewCigarOp(sam.CigarMatch, 40),
	}
	sc := linkage.NewScorer(table, 0)
	res := sc.Score(newRecord("clipped", chr1Ref, 110, cigar, seqWithBase(50, 20, 'G'), 40))
	if res == nil {
		t.Fatal("Score returned nil")
	}
	assert.EQ(t, res.Pattern, "MUT1")
}
