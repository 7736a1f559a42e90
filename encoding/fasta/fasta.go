// Package fasta loads reference FASTA data fully into memory.  Sequence
// names are the characters between '>' and the first space; bases are
// uppercased on load so callers can compare against normalized alleles
// directly.  This is intended for the small references this tool targets
// (amplicons, viral genomes); there is no faidx support.
package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// SeqSet holds a set of named sequences.  Immutable after Read; safe for
// concurrent readers.
type SeqSet struct {
	seqs  map[string][]byte
	names []string
}

// Read parses FASTA data from r.
func Read(r io.Reader) (*SeqSet, error) {
	s := &SeqSet{seqs: make(map[string][]byte)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1<<28)
	var name string
	var seq []byte
	flush := func() error {
		if name == "" {
			if len(seq) != 0 {
				return errors.New("fasta: sequence data before first header")
			}
			return nil
		}
		if _, dup := s.seqs[name]; dup {
			return errors.Errorf("fasta: duplicate sequence name %q", name)
		}
		s.seqs[name] = bytes.ToUpper(seq)
		s.names = append(s.names, name)
		return nil
	}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return nil, err
			}
			fields := bytes.Fields(line[1:])
			if len(fields) == 0 {
				return nil, errors.New("fasta: header line with no sequence name")
			}
			name = string(fields[0])
			seq = nil
			continue
		}
		seq = append(seq, line...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "fasta: read")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(s.names) == 0 {
		return nil, errors.New("fasta: no sequences found")
	}
	return s, nil
}

// Names returns the sequence names in file order.
func (s *SeqSet) Names() []string { return s.names }

// Len returns the length of the named sequence.
func (s *SeqSet) Len(name string) (int, error) {
	seq, ok := s.seqs[name]
	if !ok {
		return 0, errors.Errorf("fasta: sequence not found: %s", name)
	}
	return len(seq), nil
}

// Sub returns the 0-based half-open subsequence [start, end) of the named
// sequence.  The returned slice aliases the set's storage and must not be
// modified.
func (s *SeqSet) Sub(name string, start, end int) ([]byte, error) {
	seq, ok := s.seqs[name]
	if !ok {
		return nil, errors.Errorf("fasta: sequence not found: %s", name)
	}
	if start < 0 || end <= start || end > len(seq) {
		return nil, errors.Errorf("fasta: invalid range [%d, %d) for sequence %s with length %d",
			start, end, name, len(seq))
	}
	return seq[start:end], nil
}
