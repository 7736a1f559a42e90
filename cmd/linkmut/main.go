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
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/linkmut/linkage"
)

var (
	positionsPath = flag.String("positions", "", "Input positions-of-interest path (tab-delimited, optionally gzipped); required")
	fastaPath     = flag.String("fasta", "", "Optional reference FASTA; wildtype alleles are checked against it before scoring")
	outPath       = flag.String("out", "linkmut.csv", "Output path")
	format        = flag.String("format", linkage.DefaultOpts.Format, "Output format; 'csv', 'csv-gz', 'tsv', and 'tsv-bgz' supported")
	minBaseQual   = flag.Int("min-base-qual", linkage.DefaultOpts.MinBaseQual, "Positions covered by a base with quality below this are called ambiguous; 0 disables")
	mapq          = flag.Int("mapq", linkage.DefaultOpts.Mapq, "Reads with MAPQ below this level are skipped")
	flagExclude   = flag.Int("flag-exclude", linkage.DefaultOpts.FlagExclude, "Reads with a FLAG bit intersecting this value are skipped")
	parallelism   = flag.Int("parallelism", 0, "Maximum number of simultaneous scoring workers; 0 = runtime.NumCPU()")
	batchSize     = flag.Int("batch-size", linkage.DefaultOpts.BatchSize, "Number of records handed to a worker at a time")
)

// Exit codes per error category; see doc.go.
const (
	exitValidation = 2
	exitDecode     = 3
	exitIO         = 4
)

func linkmutUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = linkmutUsage
	shutdown := grail.Init()
	defer shutdown()

	allArgs := flag.Args()
	nPositionalArgs := flag.NArg()
	positionalArgs := allArgs[len(allArgs)-nPositionalArgs:]
	if nPositionalArgs != 1 {
		if nPositionalArgs < 1 {
			log.Error.Printf("Missing positional argument (bampath required); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		} else {
			log.Error.Printf("Too many positional arguments (only bampath expected); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		}
		return 1
	}
	if *positionsPath == "" {
		log.Error.Printf("-positions is required")
		return 1
	}
	ctx := vcontext.Background()
	opts := linkage.Opts{
		PositionsPath: *positionsPath,
		FastaPath:     *fastaPath,
		Format:        *format,
		MinBaseQual:   *minBaseQual,
		Mapq:          *mapq,
		FlagExclude:   *flagExclude,
		Parallelism:   *parallelism,
		BatchSize:     *batchSize,
	}
	if err := linkage.Run(ctx, positionalArgs[0], *outPath, &opts); err != nil {
		log.Error.Printf("%v", err)
		var vErr *linkage.ValidationError
		var dErr *linkage.DecodeError
		var ioErr *linkage.IOError
		switch {
		case errors.As(err, &vErr):
			return exitValidation
		case errors.As(err, &dErr):
			return exitDecode
		case errors.As(err, &ioErr):
			return exitIO
		}
		return 1
	}
	log.Debug.Printf("exiting")
	return 0
}
