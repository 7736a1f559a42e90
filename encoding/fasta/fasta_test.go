package fasta_test

import (
	"strings"
	"testing"

	"github.com/grailbio/linkmut/encoding/fasta"
	"github.com/grailbio/testutil/assert"
)

const testFasta = `>seq1 description here
acgtACGT
ACGT
>seq2
TTTT
`

func TestRead(t *testing.T) {
	seqs, err := fasta.Read(strings.NewReader(testFasta))
	assert.NoError(t, err)
	assert.EQ(t, seqs.Names(), []string{"seq1", "seq2"})

	n, err := seqs.Len("seq1")
	assert.NoError(t, err)
	assert.EQ(t, n, 12)
	n, err = seqs.Len("seq2")
	assert.NoError(t, err)
	assert.EQ(t, n, 4)

	// Bases are uppercased and line breaks removed.
	sub, err := seqs.Sub("seq1", 0, 12)
	assert.NoError(t, err)
	assert.EQ(t, string(sub), "ACGTACGTACGT")
	sub, err = seqs.Sub("seq1", 2, 6)
	assert.NoError(t, err)
	assert.EQ(t, string(sub), "GTAC")
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"data_before_header", "ACGT\n>seq1\nACGT\n"},
		{"duplicate_name", ">seq1\nAC\n>seq1\nGT\n"},
		{"nameless_header", ">\nACGT\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fasta.Read(strings.NewReader(tt.in)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestSubErrors(t *testing.T) {
	seqs, err := fasta.Read(strings.NewReader(testFasta))
	assert.NoError(t, err)
	for _, tt := range []struct {
		name       string
		start, end int
	}{
		{"seq3", 0, 1},   // unknown sequence
		{"seq2", -1, 2},  // negative start
		{"seq2", 2, 2},   // empty range
		{"seq2", 2, 100}, // past the end
	} {
		if _, err := seqs.Sub(tt.name, tt.start, tt.end); err == nil {
			t.Fatalf("Sub(%q, %d, %d): expected an error", tt.name, tt.start, tt.end)
		}
	}
	if _, err := seqs.Len("seq3"); err == nil {
		t.Fatal("Len of unknown sequence: expected an error")
	}
}
