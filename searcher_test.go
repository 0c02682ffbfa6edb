package cliques

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"crosswarped.com/cliques/pkg/primitives"
)

var allStrategies = []Strategy{StrategyFlat, StrategyIndexed, StrategyParallel}

func defaultParams(strategy Strategy) SearcherParams {
	return SearcherParams{
		WordLength:          5,
		WordsPerCombination: 5,
		Alphabet:            primitives.DefaultAlphabet(),
		Policy:              PolicyMissingLetter,
		Strategy:            strategy,
		Workers:             4,
		ChannelBuffer:       2,
	}
}

// collect gathers combinations with the iterator matching the strategy.
func collect(t testing.TB, s *Searcher) []Combination {
	t.Helper()
	seq := s.Combinations(t.Context())
	if s.Strategy == StrategyParallel {
		seq = s.ParallelCombinations(t.Context())
	}
	var got []Combination
	for c := range seq {
		got = append(got, c)
	}
	return got
}

// key identifies a combination independently of slot order.
func key(c Combination) string {
	fps := slices.Clone(c.Fingerprints)
	slices.Sort(fps)
	return fmt.Sprintf("%x/%c", fps, c.Missing)
}

func keys(cs []Combination) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = key(c)
	}
	slices.Sort(out)
	return out
}

func runLines(t testing.TB, s *Searcher) []string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := s.Run(t.Context(), &buf); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	slices.Sort(lines)
	return lines
}

func randomWords(rng *rand.Rand, n, length, alphabetSize int) []string {
	words := make([]string, n)
	for i := range words {
		b := make([]byte, length)
		for j := range b {
			b[j] = byte('a' + rng.IntN(alphabetSize))
		}
		words[i] = string(b)
	}
	return words
}

func TestCombinations_TinyAlphabet(t *testing.T) {
	words := []string{"abcde", "fghij", "klmno", "pqrst", "uvwxy"}

	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			s := CreateSearcher(words, defaultParams(strategy))
			got := collect(t, s)
			if len(got) != 1 {
				t.Fatalf("expected 1 combination, got %d", len(got))
			}
			if got[0].Missing != 'z' {
				t.Errorf("Missing = %q, want 'z'", got[0].Missing)
			}
			if diff := cmp.Diff([]string{"abcde fghij klmno pqrst uvwxy z"}, runLines(t, CreateSearcher(words, defaultParams(strategy)))); diff != "" {
				t.Errorf("Run() output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCombinations_RepeatedLettersOnly(t *testing.T) {
	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			s := CreateSearcher([]string{"aabbc", "ddeef"}, defaultParams(strategy))
			if got := collect(t, s); len(got) != 0 {
				t.Errorf("expected no combinations, got %d", len(got))
			}
			if s.Stats().Fingerprints != 0 {
				t.Errorf("Fingerprints = %d, want 0", s.Stats().Fingerprints)
			}
			if lines := runLines(t, CreateSearcher([]string{"aabbc", "ddeef"}, defaultParams(strategy))); len(lines) != 0 {
				t.Errorf("expected no rows, got %q", lines)
			}
		})
	}
}

func TestRun_AnagramExpansion(t *testing.T) {
	words := []string{"abcde", "fghij", "klmno", "pqrst", "uvwxy", "bdcea"}
	want := []string{
		"abcde fghij klmno pqrst uvwxy z",
		"bdcea fghij klmno pqrst uvwxy z",
	}

	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			s := CreateSearcher(words, defaultParams(strategy))
			if diff := cmp.Diff(want, runLines(t, s)); diff != "" {
				t.Errorf("Run() output mismatch (-want +got):\n%s", diff)
			}
			stats := s.Stats()
			if stats.Combinations != 1 || stats.Rows != 2 {
				t.Errorf("Stats() = %+v, want 1 combination and 2 rows", stats)
			}
			if stats.WordsRead != 6 || stats.Words != 6 || stats.Fingerprints != 5 {
				t.Errorf("Stats() = %+v, want 6 read, 6 admissible, 5 fingerprints", stats)
			}
		})
	}
}

func TestRun_ExactPolicy(t *testing.T) {
	words := []string{"abc", "def", "ghi", "adg", "xyz"}
	params := SearcherParams{
		WordLength:          3,
		WordsPerCombination: 2,
		Policy:              PolicyExact,
	}
	want := []string{
		"abc def", "abc ghi", "abc xyz",
		"adg xyz",
		"def ghi", "def xyz",
		"ghi xyz",
	}

	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			params.Strategy = strategy
			got := runLines(t, CreateSearcher(words, params))
			// Slot order follows dictionary order, so each line is already
			// the sorted pair.
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Run() output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCombinations_SingleWord(t *testing.T) {
	words := []string{"abcd", "bcde", "aabb"}
	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			a, _ := primitives.NewAlphabet(5)
			s := CreateSearcher(words, SearcherParams{
				WordLength:          4,
				WordsPerCombination: 1,
				Alphabet:            a,
				Policy:              PolicyMissingLetter,
				Strategy:            strategy,
			})
			got := collect(t, s)
			want := []string{"abcd e", "bcde a"}
			var reprs []string
			for _, c := range got {
				reprs = append(reprs, c.Repr())
			}
			slices.Sort(reprs)
			if diff := cmp.Diff(want, reprs); diff != "" {
				t.Errorf("combinations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// bruteForceTriples lists every unordered triple of pairwise disjoint
// fingerprints by checking all of them.
func bruteForceTriples(fps []primitives.Fingerprint, accept func(primitives.Fingerprint) bool, a primitives.Alphabet) []string {
	var out []string
	for i := range fps {
		for j := i + 1; j < len(fps); j++ {
			for k := j + 1; k < len(fps); k++ {
				if !fps[i].Disjoint(fps[j]) || !fps[i].Disjoint(fps[k]) || !fps[j].Disjoint(fps[k]) {
					continue
				}
				union := fps[i] | fps[j] | fps[k]
				if !accept(union) {
					continue
				}
				c := Combination{Fingerprints: []primitives.Fingerprint{fps[i], fps[j], fps[k]}}
				if m, ok := a.MissingLetter(union); ok && union.Count() == a.Size()-1 {
					c.Missing = m
				}
				out = append(out, key(c))
			}
		}
	}
	slices.Sort(out)
	return out
}

func TestCombinations_Completeness(t *testing.T) {
	tests := []struct {
		name         string
		alphabetSize int
		policy       Policy
	}{
		{"exact", 12, PolicyExact},
		{"missing letter", 10, PolicyMissingLetter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(42, 1024))
			words := randomWords(rng, 400, 3, tt.alphabetSize)
			a, err := primitives.NewAlphabet(tt.alphabetSize)
			if err != nil {
				t.Fatal(err)
			}

			params := SearcherParams{
				WordLength:          3,
				WordsPerCombination: 3,
				Alphabet:            a,
				Policy:              tt.policy,
				Workers:             3,
				ChannelBuffer:       8,
			}

			results := make(map[Strategy][]string)
			for _, strategy := range allStrategies {
				params.Strategy = strategy
				s := CreateSearcher(words, params)
				got := collect(t, s)

				for _, c := range got {
					assertCombination(t, c, params)
				}
				results[strategy] = keys(got)
				if dupes := len(results[strategy]) - len(slices.Compact(slices.Clone(results[strategy]))); dupes != 0 {
					t.Errorf("%s: %d duplicate combinations", strategy, dupes)
				}
			}

			if len(results[StrategyFlat]) == 0 {
				t.Fatal("expected the synthetic dictionary to produce combinations")
			}

			s := CreateSearcher(words, params)
			d, err := s.dictionary(t.Context())
			if err != nil {
				t.Fatal(err)
			}
			want := bruteForceTriples(d.Fingerprints(), s.complete, a)
			for _, strategy := range allStrategies {
				if diff := cmp.Diff(want, results[strategy]); diff != "" {
					t.Errorf("%s: combinations differ from brute force (-want +got):\n%s", strategy, diff)
				}
			}
		})
	}
}

// assertCombination checks the disjointness and completion invariants.
func assertCombination(t *testing.T, c Combination, p SearcherParams) {
	t.Helper()
	if len(c.Fingerprints) != p.WordsPerCombination {
		t.Errorf("%s: has %d members, want %d", c.DebugString(), len(c.Fingerprints), p.WordsPerCombination)
	}
	var union primitives.Fingerprint
	for i, f := range c.Fingerprints {
		if f.Count() != p.WordLength {
			t.Errorf("%s: member %d has %d letters", c.DebugString(), i, f.Count())
		}
		if !f.Disjoint(union) {
			t.Errorf("%s: member %d overlaps an earlier member", c.DebugString(), i)
		}
		union |= f
	}
	if p.Policy != PolicyMissingLetter {
		if c.Missing != 0 {
			t.Errorf("%s: exact policy should not report a missing letter", c.DebugString())
		}
		return
	}
	if union.Count() != p.Alphabet.Size()-1 {
		t.Errorf("%s: union covers %d letters, want %d", c.DebugString(), union.Count(), p.Alphabet.Size()-1)
	}
	if m, ok := p.Alphabet.MissingLetter(union); !ok || m != c.Missing {
		t.Errorf("%s: missing letter %q, want %q", c.DebugString(), c.Missing, m)
	}
}

func TestParallelCombinations_Break(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	words := randomWords(rng, 300, 3, 12)
	s := CreateSearcher(words, SearcherParams{
		WordLength:          3,
		WordsPerCombination: 2,
		Policy:              PolicyExact,
		Strategy:            StrategyParallel,
		Workers:             4,
		ChannelBuffer:       1,
	})

	count := 0
	for range s.ParallelCombinations(t.Context()) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("expected to stop after 3 combinations, got %d", count)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRun_WriteError(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1024))
	// Enough rows to overflow the output buffer.
	words := randomWords(rng, 2000, 3, 20)

	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			s := CreateSearcher(words, SearcherParams{
				WordLength:          3,
				WordsPerCombination: 2,
				Alphabet:            mustAlphabet(t, 20),
				Policy:              PolicyExact,
				Strategy:            strategy,
				Workers:             2,
			})
			if _, err := s.Run(t.Context(), failingWriter{}); err == nil {
				t.Error("Run() should report the write error")
			}
		})
	}
}

func TestRun_WriteErrorStats(t *testing.T) {
	// Every two-letter set once: no anagrams, so each combination is one row.
	var words []string
	for a := 'a'; a <= 'z'; a++ {
		for b := a + 1; b <= 'z'; b++ {
			words = append(words, string([]rune{a, b}))
		}
	}

	for _, strategy := range allStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			s := CreateSearcher(words, SearcherParams{
				WordLength:          2,
				WordsPerCombination: 2,
				Policy:              PolicyExact,
				Strategy:            strategy,
				Workers:             4,
			})
			stats, err := s.Run(t.Context(), failingWriter{})
			if err == nil {
				t.Fatal("Run() should report the write error")
			}
			if stats.Combinations != stats.Rows {
				t.Errorf("stats = %+v; combinations should only count written rows", stats)
			}
			if stats.Rows == 0 || stats.Rows >= 325*276/2 {
				t.Errorf("rows = %d, want a partial run", stats.Rows)
			}
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	for _, strategy := range allStrategies {
		s := CreateSearcher([]string{"abcde", "fghij"}, defaultParams(strategy))
		if _, err := s.Run(ctx, &bytes.Buffer{}); !errors.Is(err, context.Canceled) {
			t.Errorf("%s: Run() error = %v, want context.Canceled", strategy, err)
		}
	}
}

func TestRun_InvalidCombinationSize(t *testing.T) {
	s := CreateSearcher([]string{"abcde"}, SearcherParams{WordLength: 5})
	if _, err := s.Run(t.Context(), &bytes.Buffer{}); err == nil {
		t.Error("Run() with zero words per combination should fail")
	}
}

func TestParsePolicyAndStrategy(t *testing.T) {
	for _, p := range []Policy{PolicyExact, PolicyMissingLetter} {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	for _, s := range allStrategies {
		got, err := ParseStrategy(strings.ToUpper(s.String()))
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParsePolicy("most"); err == nil {
		t.Error("ParsePolicy(most) should fail")
	}
	if _, err := ParseStrategy("distributed"); err == nil {
		t.Error("ParseStrategy(distributed) should fail")
	}
}

func mustAlphabet(t testing.TB, size int) primitives.Alphabet {
	t.Helper()
	a, err := primitives.NewAlphabet(size)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func BenchmarkRun(b *testing.B) {
	rng := rand.New(rand.NewPCG(42, 1024))
	words := randomWords(rng, 1000, 4, 16)
	b.ReportAllocs()

	for _, strategy := range allStrategies {
		b.Run(strategy.String(), func(b *testing.B) {
			for b.Loop() {
				s := CreateSearcher(words, SearcherParams{
					WordLength:          4,
					WordsPerCombination: 4,
					Alphabet:            mustAlphabet(b, 16),
					Policy:              PolicyExact,
					Strategy:            strategy,
				})
				stats, err := s.Run(b.Context(), &bytes.Buffer{})
				if err != nil {
					b.Fatal(err)
				}
				b.ReportMetric(float64(stats.Combinations), "combinations")
			}
		})
	}
}
