package bamiter_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/linkmut/encoding/bamiter"
	"github.com/grailbio/testutil/assert"
)

func testRecords(t *testing.T, n int) (*sam.Header, []*sam.Record) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	assert.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{ref})
	assert.NoError(t, err)
	recs := make([]*sam.Record, n)
	for i := range recs {
		recs[i] = &sam.Record{
			Name:  fmt.Sprintf("read%03d", i),
			Ref:   ref,
			Pos:   i * 10,
			MapQ:  60,
			Cigar: sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 4)},
			Seq:   sam.NewSeq([]byte("ACGT")),
			Qual:  []byte{40, 40, 40, 40},
		}
	}
	return header, recs
}

func TestReader(t *testing.T) {
	header, recs := testRecords(t, 25)
	var buf bytes.Buffer
	bw, err := bam.NewWriter(&buf, header, 1)
	assert.NoError(t, err)
	for _, r := range recs {
		assert.NoError(t, bw.Write(r))
	}
	assert.NoError(t, bw.Close())

	it, err := bamiter.NewReader(&buf, 0)
	assert.NoError(t, err)
	assert.EQ(t, len(it.Header().Refs()), 1)
	var got []string
	for it.Scan() {
		rec := it.Record()
		got = append(got, rec.Name)
	}
	assert.NoError(t, it.Err())
	assert.NoError(t, it.Close())
	assert.EQ(t, len(got), len(recs))
	for i, name := range got {
		assert.EQ(t, name, recs[i].Name)
	}
}

func TestReaderRejectsGarbage(t *testing.T) {
	if _, err := bamiter.NewReader(bytes.NewReader([]byte("not a bam")), 0); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSliceIterator(t *testing.T) {
	_, recs := testRecords(t, 3)
	it := bamiter.NewSliceIterator(recs)
	for i := 0; it.Scan(); i++ {
		assert.EQ(t, it.Record().Name, recs[i].Name)
	}
	assert.NoError(t, it.Err())
	assert.NoError(t, it.Close())
	// Exhausted iterators stay exhausted.
	assert.EQ(t, it.Scan(), false)
}
