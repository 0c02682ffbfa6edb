package cliques

import (
	"fmt"
	"iter"
	"strings"

	"crosswarped.com/cliques/internal"
	"crosswarped.com/cliques/pkg/primitives"
)

// Combination is a set of pairwise disjoint fingerprints.
//
// Fingerprints are in slot order, which is also the order of words in every
// row. Missing is the uncovered letter under PolicyMissingLetter and zero
// otherwise.
type Combination struct {
	Fingerprints []primitives.Fingerprint
	Missing      rune

	dict *internal.Dictionary
}

// Classes returns the anagram class of each slot.
func (c Combination) Classes() [][]string {
	classes := make([][]string, len(c.Fingerprints))
	for i, f := range c.Fingerprints {
		classes[i] = c.dict.Class(f)
	}
	return classes
}

// NumRows returns how many rows Rows yields: the product of the class sizes.
func (c Combination) NumRows() int64 {
	if len(c.Fingerprints) == 0 {
		return 0
	}
	n := int64(1)
	for _, f := range c.Fingerprints {
		n *= int64(len(c.dict.Class(f)))
	}
	return n
}

// Rows expands the combination into every choice of one word per slot. The
// last slot varies fastest and each class keeps its input order.
func (c Combination) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		classes := c.Classes()
		if len(classes) == 0 {
			return
		}
		for _, class := range classes {
			if len(class) == 0 {
				return
			}
		}

		pos := make([]int, len(classes))
		for {
			words := make([]string, len(classes))
			for i, class := range classes {
				words[i] = class[pos[i]]
			}
			if !yield(Row{Words: words, Missing: c.Missing}) {
				return
			}

			k := len(pos) - 1
			for ; k >= 0; k-- {
				pos[k]++
				if pos[k] < len(classes[k]) {
					break
				}
				pos[k] = 0
			}
			if k < 0 {
				return
			}
		}
	}
}

// Repr renders the combination as its anagram classes, e.g.
// "abcde|bdcea fghij klmno pqrst uvwxy z".
func (c Combination) Repr() string {
	parts := make([]string, 0, len(c.Fingerprints)+1)
	for _, class := range c.Classes() {
		parts = append(parts, strings.Join(class, "|"))
	}
	if c.Missing != 0 {
		parts = append(parts, string(c.Missing))
	}
	return strings.Join(parts, " ")
}

func (c Combination) DebugString() string {
	return fmt.Sprintf("Combination{fingerprints: %#x, missing: %q}", c.Fingerprints, c.Missing)
}

// Row is one concrete word per slot of a combination.
type Row struct {
	Words   []string
	Missing rune
}

// Repr renders the row as one output line without the trailing newline: the
// words space-separated, followed by the missing letter if there is one.
func (r Row) Repr() string {
	var sb strings.Builder
	for i, w := range r.Words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w)
	}
	if r.Missing != 0 {
		sb.WriteByte(' ')
		sb.WriteRune(r.Missing)
	}
	return sb.String()
}
