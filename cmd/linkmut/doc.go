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

/*
Given a BAM and a tab-delimited table of genomic positions of interest — each
annotated with a wildtype allele and one or more candidate mutant alleles —
linkmut reports, for every read overlapping at least one position, which
allele the read supports at each overlapped position, as one output row per
read.  Because all of a read's calls land on the same row, co-occurrence of
mutations on the same physical molecule (linkage) can be counted directly
from the combined_pattern column, which single-position pileups cannot
answer.

The positions file is BED-derived:

    reference_name  start  end  label  wildtype_allele  mutant_allele_1 [mutant_allele_2 ...]

with 0-based half-open coordinates and allele lengths equal to end - start.

Sample usage:
linkmut \
    --positions my-positions.tsv \
    --fasta ref.fa \
    --out calls.csv \
    my.bam

Exit codes: 0 on success, 2 for invalid positions input, 3 for corrupt
alignment input, 4 for output I/O failures, 1 otherwise.
*/
package main
