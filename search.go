package cliques

import (
	"context"

	"crosswarped.com/cliques/pkg/primitives"
)

// searchFrame is the backtracking state of one search. It is never shared
// between goroutines.
type searchFrame struct {
	candidates []primitives.Fingerprint
	// chosen[:depth] are indices into candidates, strictly increasing.
	chosen []int
	depth  int
	cursor int
	// union is the prefix OR the candidates at chosen[:depth].
	union primitives.Fingerprint
}

// pop undoes the most recent choice and resumes scanning just after it.
func (f *searchFrame) pop() {
	f.depth--
	f.cursor = f.chosen[f.depth]
	f.union ^= f.candidates[f.cursor]
	f.cursor++
}

// searchDisjoint enumerates every way of choosing slots pairwise disjoint
// candidates that are also disjoint from prefix, in candidate order.
//
// complete is asked about each full selection's union and yield receives the
// accepted ones; chosen is only valid for the duration of the call. It
// returns false if yield asked to stop or ctx was canceled.
func searchDisjoint(
	ctx context.Context,
	prefix primitives.Fingerprint,
	candidates []primitives.Fingerprint,
	slots int,
	complete func(union primitives.Fingerprint) bool,
	yield func(chosen []int, union primitives.Fingerprint) bool,
) bool {
	if slots == 0 {
		if complete(prefix) {
			return yield(nil, prefix)
		}
		return true
	}

	f := searchFrame{
		candidates: candidates,
		chosen:     make([]int, slots),
		union:      prefix,
	}

	steps := 0
	for {
		if f.depth == slots {
			if complete(f.union) && !yield(f.chosen, f.union) {
				return false
			}
			f.pop()
			continue
		}

		// Fewer candidates left than open slots: nothing below this prefix
		// can complete.
		if len(candidates)-f.cursor < slots-f.depth {
			if f.depth == 0 {
				return true
			}
			f.pop()
			continue
		}

		steps++
		if steps&0x3ff == 0 && ctx.Err() != nil {
			return false
		}

		if f.union&candidates[f.cursor] == 0 {
			f.chosen[f.depth] = f.cursor
			f.union |= candidates[f.cursor]
			f.depth++
		}
		f.cursor++
	}
}
