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
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/linkmut/encoding/bamiter"
	"github.com/grailbio/linkmut/encoding/fasta"
	"github.com/klauspost/compress/gzip"
)

// Problem:
// Given a coordinate-sorted BAM and a table of positions of interest, report
// for every read overlapping at least one position which allele the read
// supports at each such position, as one output row per read.
//
// Implementation strategy:
// The position table is built once and frozen, after which scoring each
// record is a pure function of (record, table).  That makes the stream
// embarrassingly parallel at record granularity: a reader goroutine pulls
// records in file order and groups them into sequence-numbered batches, a
// worker pool scores batches independently (one Scorer, and therefore one
// scratch buffer, per worker), and a single writer reassembles scored
// batches in sequence-number order before appending to the sink.  Output
// row order therefore always equals input file order, with no coordination
// between workers beyond the two channels.
//
// On the first sink error the writer closes a stop channel; the reader stops
// dispatching batches and the workers drain out.  Output is written under a
// temporary name and renamed only after a fully successful run, so a
// truncated file can't masquerade as a complete one.

// Opts contains the scoring options.
type Opts struct {
	// PositionsPath names the tab-delimited positions-of-interest file
	// (optionally gzipped).  Required.
	PositionsPath string
	// FastaPath optionally names a reference FASTA; when set, every
	// position's wildtype allele is checked against the reference before any
	// scoring begins.
	FastaPath string
	// Format is one of "csv", "csv-gz", "tsv", "tsv-bgz".
	Format string
	// MinBaseQual makes a position's call Ambiguous when any covering base
	// has quality below it.  0 disables the check.
	MinBaseQual int
	// Mapq: records with MAPQ below this are skipped.
	Mapq int
	// FlagExclude: records with a FLAG bit intersecting this value are
	// skipped.
	FlagExclude int
	// Parallelism caps the number of scoring workers; 0 = runtime.NumCPU().
	Parallelism int
	// BatchSize is the number of records handed to a worker at a time.
	BatchSize int
}

// DefaultOpts holds the defaults the CLI advertises.
var DefaultOpts = Opts{
	Format:      "csv",
	MinBaseQual: 0,
	Mapq:        0,
	FlagExclude: 0x900, // secondary | supplementary
	Parallelism: 0,
	BatchSize:   4096,
}

// splitFormat maps a format name to its row layout and compression.
func splitFormat(format string) (layout, comp string, err error) {
	switch format {
	case "csv":
		return "csv", "", nil
	case "csv-gz":
		return "csv", "gz", nil
	case "tsv":
		return "tsv", "", nil
	case "tsv-bgz":
		return "tsv", "bgzf", nil
	}
	return "", "", fmt.Errorf("linkage: unrecognized format %q", format)
}

type recBatch struct {
	seq  int
	recs []*sam.Record
}

type scoredBatch struct {
	seq  int
	rows []*ReadResult
}

type runStats struct {
	scanned   int64 // records pulled from the iterator
	filtered  int64 // records dropped by the FLAG/MAPQ filters
	anomalies int64 // records skipped for inconsistent CIGARs
	rows      int64 // output rows written
}

// pipeline wires one scoring run together.  Tests construct it directly
// over a SliceIterator and an in-memory sink.
type pipeline struct {
	it          bamiter.Iterator
	table       *Table
	sink        Sink
	parallelism int
	batchSize   int
	mapq        int
	flagExclude int
	minBaseQual int
}

func (pl *pipeline) run() (st runStats, readErr, writeErr, workErr error) {
	batches := make(chan recBatch, pl.parallelism)
	results := make(chan scoredBatch, pl.parallelism)
	stop := make(chan struct{})

	go func() {
		defer close(batches)
		seq := 0
		recs := make([]*sam.Record, 0, pl.batchSize)
		dispatch := func() bool {
			select {
			case batches <- recBatch{seq: seq, recs: recs}:
				seq++
				recs = make([]*sam.Record, 0, pl.batchSize)
				return true
			case <-stop:
				return false
			}
		}
		for pl.it.Scan() {
			rec := pl.it.Record()
			st.scanned++
			if (pl.flagExclude&int(rec.Flags) != 0) || (pl.mapq > int(rec.MapQ)) {
				st.filtered++
				continue
			}
			recs = append(recs, rec)
			if len(recs) == pl.batchSize {
				if !dispatch() {
					return
				}
			}
		}
		if len(recs) != 0 {
			dispatch()
		}
		readErr = pl.it.Err()
	}()

	scorers := make([]*Scorer, pl.parallelism)
	workDone := make(chan error, 1)
	go func() {
		workDone <- traverse.Each(pl.parallelism, func(jobIdx int) error {
			sc := NewScorer(pl.table, pl.minBaseQual)
			scorers[jobIdx] = sc
			for b := range batches {
				rows := make([]*ReadResult, 0, len(b.recs))
				for _, rec := range b.recs {
					if res := sc.Score(rec); res != nil {
						rows = append(rows, res)
					}
				}
				select {
				case results <- scoredBatch{seq: b.seq, rows: rows}:
				case <-stop:
					return nil
				}
			}
			return nil
		})
		close(results)
	}()

	// Sequence-tagged merge: rows reach the sink in input file order no
	// matter how workers interleave.
	pending := make(map[int][]*ReadResult)
	next := 0
	for sb := range results {
		if writeErr != nil {
			continue // drain
		}
		pending[sb.seq] = sb.rows
		for rows, ok := pending[next]; ok; rows, ok = pending[next] {
			delete(pending, next)
			next++
			for _, res := range rows {
				if e := pl.sink.Write(res); e != nil {
					writeErr = e
					close(stop)
					break
				}
				st.rows++
			}
			if writeErr != nil {
				break
			}
		}
	}
	workErr = <-workDone
	for _, sc := range scorers {
		if sc != nil {
			st.anomalies += sc.Anomalies()
		}
	}
	return
}

// Run scores bampath against the configured position table and writes one
// row per overlapping read to outPath.  The error is a *ValidationError,
// *DecodeError, or *IOError per the taxonomy in errors.go; on any error the
// output is left under outPath + ".partial" rather than renamed.
func Run(ctx context.Context, bampath, outPath string, opts *Opts) (err error) {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultOpts.BatchSize
	}
	layout, comp, err := splitFormat(opts.Format)
	if err != nil {
		return err
	}

	table, err := LoadTable(ctx, opts.PositionsPath)
	if err != nil {
		return err
	}
	log.Printf("linkmut: %d position(s) of interest loaded", len(table.Positions()))
	if opts.FastaPath != "" {
		if err = verifyWildtypes(ctx, table, opts.FastaPath); err != nil {
			return err
		}
	}

	var in file.File
	if in, err = file.Open(ctx, bampath); err != nil {
		return &IOError{Path: bampath, Err: err}
	}
	defer file.CloseAndReport(ctx, in, &err)
	it, err := bamiter.NewReader(in.Reader(ctx), 0)
	if err != nil {
		return &DecodeError{Path: bampath, Err: err}
	}
	defer func() {
		if e := it.Close(); e != nil && err == nil {
			err = &DecodeError{Path: bampath, Err: e}
		}
	}()

	partial := outPath + ".partial"
	var out file.File
	if out, err = file.Create(ctx, partial); err != nil {
		return &IOError{Path: partial, Err: err}
	}
	var w io.Writer = out.Writer(ctx)
	var finishCompression func() error
	switch comp {
	case "gz":
		gzw := gzip.NewWriter(w)
		finishCompression = gzw.Close
		w = gzw
	case "bgzf":
		bgzw := bgzf.NewWriter(w, parallelism)
		finishCompression = bgzw.Close
		w = bgzw
	}
	sink, err := newSink(w, table, layout)
	if err != nil {
		_ = out.Close(ctx)
		return &IOError{Path: partial, Err: err}
	}

	pl := pipeline{
		it:          it,
		table:       table,
		sink:        sink,
		parallelism: parallelism,
		batchSize:   batchSize,
		mapq:        opts.Mapq,
		flagExclude: opts.FlagExclude,
		minBaseQual: opts.MinBaseQual,
	}
	log.Debug.Printf("linkmut: starting main loop (%d jobs)", parallelism)
	st, readErr, writeErr, workErr := pl.run()

	if writeErr == nil {
		writeErr = sink.Flush()
	}
	if finishCompression != nil {
		if e := finishCompression(); e != nil && writeErr == nil {
			writeErr = e
		}
	}
	if e := out.Close(ctx); e != nil && writeErr == nil {
		writeErr = e
	}
	if writeErr != nil {
		return &IOError{Path: partial, Err: writeErr}
	}
	if readErr != nil {
		return &DecodeError{Path: bampath, Err: readErr}
	}
	if workErr != nil {
		return workErr
	}
	if err = os.Rename(partial, outPath); err != nil {
		return &IOError{Path: outPath, Err: err}
	}
	if st.anomalies != 0 {
		log.Printf("linkmut: %d record(s) skipped due to CIGAR/sequence-length mismatch", st.anomalies)
	}
	log.Printf("linkmut: %d record(s) scanned, %d filtered, %d row(s) written to %s",
		st.scanned, st.filtered, st.rows, outPath)
	return nil
}

// verifyWildtypes cross-checks every position's wildtype allele against the
// reference FASTA, failing before scoring if any disagrees.
func verifyWildtypes(ctx context.Context, table *Table, fastaPath string) (err error) {
	var in file.File
	if in, err = file.Open(ctx, fastaPath); err != nil {
		return &IOError{Path: fastaPath, Err: err}
	}
	defer file.CloseAndReport(ctx, in, &err)
	reader, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	seqs, err := fasta.Read(reader)
	if err != nil {
		return &ValidationError{Field: "reference_fasta", Msg: err.Error()}
	}
	for _, p := range table.Positions() {
		ref, err := seqs.Sub(p.RefName, p.Start, p.End)
		if err != nil {
			return &ValidationError{Field: "reference_name", Msg: err.Error()}
		}
		if !basesEqualFold(ref, p.Wildtype) {
			return &ValidationError{Field: "wildtype_allele", Msg: fmt.Sprintf(
				"position %q: wildtype %q does not match reference %s:%d-%d (%s)",
				p.Label, p.Wildtype, p.RefName, p.Start, p.End, ref)}
		}
	}
	return nil
}
