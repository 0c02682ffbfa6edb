package cliques

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"crosswarped.com/cliques/internal"
	"crosswarped.com/cliques/internal/logflags"
	"crosswarped.com/cliques/internal/metrics"
)

// Run performs the whole search and writes one line per row to w, see
// Row.Repr. With StrategyParallel rows arrive in no particular order.
func (s *Searcher) Run(ctx context.Context, w io.Writer) (Stats, error) {
	if s.WordsPerCombination < 1 {
		return s.stats, fmt.Errorf("words per combination must be at least 1, got %d", s.WordsPerCombination)
	}

	d, err := s.dictionary(ctx)
	if err != nil {
		return s.stats, err
	}
	var idx *internal.Index
	if s.Strategy != StrategyFlat {
		if idx, err = s.index(ctx); err != nil {
			return s.stats, err
		}
	}

	bw := bufio.NewWriterSize(w, 64*1024)
	start := time.Now()
	if s.Strategy == StrategyParallel {
		err = s.runParallel(ctx, d, idx, bw)
	} else {
		err = s.runSequential(ctx, bw)
	}
	if ferr := bw.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("flush output: %w", ferr)
	}
	if err == nil {
		err = ctx.Err()
	}

	s.stats.SearchDuration = time.Since(start)
	metrics.RecordPhase("search", err, s.stats.SearchDuration)
	metrics.RecordCombinations(s.stats.Combinations)
	metrics.RecordRows(s.stats.Rows)

	logflags.SearchLogger().WithFields(logrus.Fields{
		"strategy":     s.Strategy.String(),
		"policy":       s.Policy.String(),
		"combinations": s.stats.Combinations,
		"rows":         s.stats.Rows,
		"elapsed":      s.stats.SearchDuration,
	}).Info("search finished")

	return s.stats, err
}

func (s *Searcher) runSequential(ctx context.Context, w *bufio.Writer) error {
	for c := range s.combinations(ctx) {
		for row := range c.Rows() {
			if err := writeLine(w, row.Repr()); err != nil {
				return err
			}
			s.stats.Rows++
		}
		s.stats.Combinations++
	}
	return nil
}

// runParallel sends each combination's rows as one batch so that a
// combination is only counted once all of its rows were written.
func (s *Searcher) runParallel(ctx context.Context, d *internal.Dictionary, idx *internal.Index, w *bufio.Writer) error {
	return distribute(ctx, distributeParams{workers: s.Workers, buffer: s.ChannelBuffer}, idx.Len(),
		func(ctx context.Context, part int, emit func([]string) bool) {
			s.searchPartition(ctx, d, idx, part, func(c Combination) bool {
				lines := make([]string, 0, c.NumRows())
				for row := range c.Rows() {
					lines = append(lines, row.Repr())
				}
				return emit(lines)
			})
		},
		func(lines []string) error {
			for _, line := range lines {
				if err := writeLine(w, line); err != nil {
					return err
				}
				s.stats.Rows++
			}
			s.stats.Combinations++
			return nil
		})
}

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
