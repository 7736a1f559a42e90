// Package bamiter provides a minimal sequential iterator over the records of
// a BAM stream.  Decoding of the container format itself is delegated to
// github.com/grailbio/hts/bam; this package only adapts it to the
// Scan/Record/Err shape the scoring pipeline consumes.  Records are yielded
// in file order — there is no index handling and no random access.
package bamiter

import (
	"io"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// Iterator yields *sam.Record values one at a time, in file order.
// Thread compatible.
type Iterator interface {
	// Scan advances to the next record, returning false at end of stream or
	// on error.  After Scan returns false, Err distinguishes the two.
	Scan() bool

	// Record returns the current record.  Only valid after a Scan call that
	// returned true.  The record is owned by the iterator's consumer until
	// the next Scan call.
	Record() *sam.Record

	// Err returns the first decoding error encountered, if any.
	Err() error

	Close() error
}

// Reader iterates over a BAM byte stream.
type Reader struct {
	br  *bam.Reader
	rec *sam.Record
	err error
}

var _ Iterator = (*Reader)(nil)

// NewReader wraps an io.Reader positioned at the start of BAM data.  rd is
// the BGZF decompression concurrency; 0 picks a default.
func NewReader(r io.Reader, rd int) (*Reader, error) {
	br, err := bam.NewReader(r, rd)
	if err != nil {
		return nil, err
	}
	return &Reader{br: br}, nil
}

// Header returns the SAM header of the underlying stream.
func (r *Reader) Header() *sam.Header { return r.br.Header() }

// Scan implements Iterator.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	rec, err := r.br.Read()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}
	r.rec = rec
	return true
}

// Record implements Iterator.
func (r *Reader) Record() *sam.Record { return r.rec }

// Err implements Iterator.
func (r *Reader) Err() error { return r.err }

// Close implements Iterator.
func (r *Reader) Close() error { return r.br.Close() }
