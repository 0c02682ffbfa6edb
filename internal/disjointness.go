package internal

import (
	"context"

	"crosswarped.com/cliques/pkg/primitives"
)

// Index holds, for each fingerprint, the fingerprints after it that share no
// letter with it.
//
// Only later fingerprints are kept, so every unordered combination is reached
// from exactly one base: the earliest of its members.
type Index struct {
	fingerprints []primitives.Fingerprint
	compatible   [][]primitives.Fingerprint
}

// BuildIndex compares every pair of fingerprints once. It is quadratic in the
// number of fingerprints and is usually the most expensive step before search.
func BuildIndex(ctx context.Context, fingerprints []primitives.Fingerprint) (*Index, error) {
	idx := &Index{
		fingerprints: fingerprints,
		compatible:   make([][]primitives.Fingerprint, len(fingerprints)),
	}

	for i, base := range fingerprints {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var compatible []primitives.Fingerprint
		for _, other := range fingerprints[i+1:] {
			if base.Disjoint(other) {
				compatible = append(compatible, other)
			}
		}
		idx.compatible[i] = compatible
	}

	return idx, nil
}

// Len returns the number of base fingerprints, i.e. the number of partitions.
func (x *Index) Len() int {
	return len(x.fingerprints)
}

// Base returns the i-th fingerprint.
func (x *Index) Base(i int) primitives.Fingerprint {
	return x.fingerprints[i]
}

// Compatible returns the fingerprints after Base(i) that are disjoint from it,
// in dictionary order. The returned slice must not be modified.
func (x *Index) Compatible(i int) []primitives.Fingerprint {
	return x.compatible[i]
}
