package bamiter

import "github.com/grailbio/hts/sam"

// SliceIterator yields an in-memory record slice.  It exists for unit tests
// that would otherwise need to serialize a real BAM file first.
type SliceIterator struct {
	recs []*sam.Record
	rec  *sam.Record
}

var _ Iterator = (*SliceIterator)(nil)

// NewSliceIterator returns an Iterator over recs, in slice order.
func NewSliceIterator(recs []*sam.Record) *SliceIterator {
	return &SliceIterator{recs: recs}
}

// Scan implements Iterator.
func (it *SliceIterator) Scan() bool {
	if len(it.recs) == 0 {
		return false
	}
	it.rec = it.recs[0]
	it.recs = it.recs[1:]
	return true
}

// Record implements Iterator.
func (it *SliceIterator) Record() *sam.Record { return it.rec }

// Err implements Iterator.
func (it *SliceIterator) Err() error { return nil }

// Close implements Iterator.
func (it *SliceIterator) Close() error { return nil }
