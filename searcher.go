package cliques

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"crosswarped.com/cliques/internal"
	"crosswarped.com/cliques/internal/logflags"
	"crosswarped.com/cliques/internal/metrics"
	"crosswarped.com/cliques/pkg/primitives"
)

// Policy decides which selections of disjoint words count as a combination.
type Policy int

const (
	// PolicyExact accepts any N pairwise disjoint words.
	PolicyExact Policy = iota
	// PolicyMissingLetter accepts N pairwise disjoint words covering every
	// letter of the alphabet but one, and reports that letter.
	PolicyMissingLetter
)

func (p Policy) String() string {
	switch p {
	case PolicyExact:
		return "exact"
	case PolicyMissingLetter:
		return "missing-letter"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "exact":
		return PolicyExact, nil
	case "missing-letter", "missing":
		return PolicyMissingLetter, nil
	}
	return 0, fmt.Errorf("unknown policy %q", s)
}

// Strategy selects how the search space is walked.
type Strategy int

const (
	// StrategyFlat runs a single search over the flat fingerprint list.
	StrategyFlat Strategy = iota
	// StrategyIndexed runs one search per base fingerprint over its
	// precomputed compatible list, sequentially.
	StrategyIndexed
	// StrategyParallel runs the indexed partitions on a worker pool.
	StrategyParallel
)

func (s Strategy) String() string {
	switch s {
	case StrategyFlat:
		return "flat"
	case StrategyIndexed:
		return "indexed"
	case StrategyParallel:
		return "parallel"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "flat":
		return StrategyFlat, nil
	case "indexed":
		return StrategyIndexed, nil
	case "parallel":
		return StrategyParallel, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

type SearcherParams struct {
	WordLength          int
	WordsPerCombination int
	Alphabet            primitives.Alphabet
	Policy              Policy
	Strategy            Strategy

	// Workers is the pool size for StrategyParallel. Zero means GOMAXPROCS.
	Workers int
	// ChannelBuffer bounds the result channel of StrategyParallel.
	ChannelBuffer int
}

type Searcher struct {
	WordLength          int
	WordsPerCombination int
	Alphabet            primitives.Alphabet
	Policy              Policy
	Strategy            Strategy
	Workers             int
	ChannelBuffer       int

	words []string

	// Do not access these fields directly, use the dictionary and index
	// methods instead.
	lazyDictionary *internal.Dictionary
	lazyIndex      *internal.Index

	stats Stats
}

// Stats summarises a search. Durations are zero for phases that did not run.
type Stats struct {
	WordsRead      int
	Words          int
	Fingerprints   int
	Combinations   int64
	Rows           int64
	ReduceDuration time.Duration
	IndexDuration  time.Duration
	SearchDuration time.Duration
}

// CreateSearcher returns a searcher over words. Words are expected to be
// lower-cased already; anything that is not an admissible word is ignored.
//
// A Searcher is not safe for concurrent use; the parallel strategy manages its
// own workers.
func CreateSearcher(words []string, params SearcherParams) *Searcher {
	alphabet := params.Alphabet
	if alphabet.Size() == 0 {
		alphabet = primitives.DefaultAlphabet()
	}
	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	buffer := params.ChannelBuffer
	if buffer <= 0 {
		buffer = 1024
	}
	return &Searcher{
		WordLength:          params.WordLength,
		WordsPerCombination: params.WordsPerCombination,
		Alphabet:            alphabet,
		Policy:              params.Policy,
		Strategy:            params.Strategy,
		Workers:             workers,
		ChannelBuffer:       buffer,
		words:               words,
		stats:               Stats{WordsRead: len(words)},
	}
}

// Stats returns the counters gathered so far.
func (s *Searcher) Stats() Stats {
	return s.stats
}

func (s *Searcher) dictionary(ctx context.Context) (*internal.Dictionary, error) {
	if s.lazyDictionary != nil {
		return s.lazyDictionary, nil
	}

	start := time.Now()
	d, err := internal.Reduce(ctx, internal.ReduceParams{
		Words:      s.words,
		WordLength: s.WordLength,
		Alphabet:   s.Alphabet,
	})
	metrics.RecordPhase("reduce", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("reduce dictionary: %w", err)
	}

	s.lazyDictionary = d
	s.stats.Words = d.NumWords()
	s.stats.Fingerprints = d.NumFingerprints()
	s.stats.ReduceDuration = time.Since(start)
	metrics.RecordWords("read", len(s.words))
	metrics.RecordWords("admissible", d.NumWords())
	metrics.RecordFingerprints(d.NumFingerprints())

	logflags.DictionaryLogger().WithFields(logrus.Fields{
		"read":         len(s.words),
		"words":        d.NumWords(),
		"fingerprints": d.NumFingerprints(),
	}).Info("dictionary reduced")
	return d, nil
}

func (s *Searcher) index(ctx context.Context) (*internal.Index, error) {
	if s.lazyIndex != nil {
		return s.lazyIndex, nil
	}
	d, err := s.dictionary(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	idx, err := internal.BuildIndex(ctx, d.Fingerprints())
	elapsed := time.Since(start)
	metrics.RecordPhase("index", err, elapsed)
	if err != nil {
		return nil, fmt.Errorf("build disjointness index: %w", err)
	}

	s.lazyIndex = idx
	s.stats.IndexDuration = elapsed
	logflags.DictionaryLogger().WithField("elapsed", elapsed).Info("disjointness index built")
	return idx, nil
}

// complete reports whether a full selection with the given union is a
// combination under the searcher's policy.
func (s *Searcher) complete(union primitives.Fingerprint) bool {
	if s.Policy == PolicyMissingLetter {
		return union.Count() == s.Alphabet.Size()-1
	}
	return true
}

func (s *Searcher) combination(d *internal.Dictionary, fingerprints []primitives.Fingerprint, union primitives.Fingerprint) Combination {
	c := Combination{
		Fingerprints: fingerprints,
		dict:         d,
	}
	if s.Policy == PolicyMissingLetter {
		c.Missing = s.Alphabet.DecodeSingleBit(^union & s.Alphabet.Mask())
	}
	return c
}

// searchPartition enumerates the combinations whose earliest member is the
// i-th fingerprint of the index.
func (s *Searcher) searchPartition(ctx context.Context, d *internal.Dictionary, idx *internal.Index, i int, yield func(Combination) bool) bool {
	base := idx.Base(i)
	candidates := idx.Compatible(i)
	return searchDisjoint(ctx, base, candidates, s.WordsPerCombination-1, s.complete,
		func(chosen []int, union primitives.Fingerprint) bool {
			fps := make([]primitives.Fingerprint, 0, s.WordsPerCombination)
			fps = append(fps, base)
			for _, j := range chosen {
				fps = append(fps, candidates[j])
			}
			return yield(s.combination(d, fps, union))
		})
}

// searchFlat enumerates every combination with a single search over all
// fingerprints.
func (s *Searcher) searchFlat(ctx context.Context, d *internal.Dictionary, yield func(Combination) bool) bool {
	candidates := d.Fingerprints()
	return searchDisjoint(ctx, 0, candidates, s.WordsPerCombination, s.complete,
		func(chosen []int, union primitives.Fingerprint) bool {
			fps := make([]primitives.Fingerprint, len(chosen))
			for k, j := range chosen {
				fps[k] = candidates[j]
			}
			return yield(s.combination(d, fps, union))
		})
}

// Combinations returns every combination, one search at a time on the calling
// goroutine. StrategyParallel is walked like StrategyIndexed here; use
// ParallelCombinations to fan out.
//
// Errors, including cancellation, end the sequence early; check ctx.Err()
// afterwards.
func (s *Searcher) Combinations(ctx context.Context) iter.Seq[Combination] {
	return func(yield func(Combination) bool) {
		for c := range s.combinations(ctx) {
			s.stats.Combinations++
			if !yield(c) {
				return
			}
		}
	}
}

// combinations is Combinations without touching the stats.
func (s *Searcher) combinations(ctx context.Context) iter.Seq[Combination] {
	return func(yield func(Combination) bool) {
		if s.WordsPerCombination < 1 {
			return
		}
		d, err := s.dictionary(ctx)
		if err != nil {
			return
		}

		if s.Strategy == StrategyFlat {
			s.searchFlat(ctx, d, yield)
			return
		}

		idx, err := s.index(ctx)
		if err != nil {
			return
		}
		for i := range idx.Len() {
			if !s.searchPartition(ctx, d, idx, i, yield) {
				return
			}
		}
	}
}

// ParallelCombinations is like Combinations but spreads the partitions of the
// index over s.Workers goroutines. Combinations arrive in no particular order;
// yield is always called on the ranging goroutine.
func (s *Searcher) ParallelCombinations(ctx context.Context) iter.Seq[Combination] {
	return func(yield func(Combination) bool) {
		if s.WordsPerCombination < 1 {
			return
		}
		d, err := s.dictionary(ctx)
		if err != nil {
			return
		}
		idx, err := s.index(ctx)
		if err != nil {
			return
		}

		// Only cancellation and errStopped can end the run early. The former
		// is visible to the caller through ctx.Err().
		distribute(ctx, distributeParams{workers: s.Workers, buffer: s.ChannelBuffer}, idx.Len(),
			func(ctx context.Context, part int, emit func(Combination) bool) {
				s.searchPartition(ctx, d, idx, part, emit)
			},
			func(c Combination) error {
				s.stats.Combinations++
				if !yield(c) {
					return errStopped
				}
				return nil
			})
	}
}
