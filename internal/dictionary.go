package internal

import (
	"context"

	"crosswarped.com/cliques/pkg/primitives"
)

type ReduceParams struct {
	Words      []string
	WordLength int
	Alphabet   primitives.Alphabet
}

// Dictionary groups admissible words by fingerprint.
//
// It is built once by Reduce and never mutated afterwards, so a single
// Dictionary can be shared by any number of search workers.
type Dictionary struct {
	alphabet   primitives.Alphabet
	wordLength int

	// fingerprints holds each distinct fingerprint once, in order of first
	// occurrence in the input.
	fingerprints []primitives.Fingerprint
	classes      map[primitives.Fingerprint][]string
	numWords     int
}

// Reduce keeps the words whose fingerprint has exactly WordLength letters and
// groups them into anagram classes. Other words are dropped silently.
func Reduce(ctx context.Context, p ReduceParams) (*Dictionary, error) {
	d := &Dictionary{
		alphabet:   p.Alphabet,
		wordLength: p.WordLength,
		classes:    make(map[primitives.Fingerprint][]string),
	}

	for i, word := range p.Words {
		if i%4096 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if len(word) != p.WordLength {
			continue
		}
		f := p.Alphabet.Encode(word)
		if f.Count() != p.WordLength {
			continue
		}
		class, seen := d.classes[f]
		if !seen {
			d.fingerprints = append(d.fingerprints, f)
		}
		d.classes[f] = append(class, word)
		d.numWords++
	}

	return d, ctx.Err()
}

func (d *Dictionary) Alphabet() primitives.Alphabet {
	return d.alphabet
}

func (d *Dictionary) WordLength() int {
	return d.wordLength
}

// Fingerprints returns the distinct fingerprints in first-seen order. The
// returned slice must not be modified.
func (d *Dictionary) Fingerprints() []primitives.Fingerprint {
	return d.fingerprints
}

// Class returns the words sharing fingerprint f, in input order.
func (d *Dictionary) Class(f primitives.Fingerprint) []string {
	return d.classes[f]
}

// NumWords returns the number of admissible words.
func (d *Dictionary) NumWords() int {
	return d.numWords
}

// NumFingerprints returns the number of anagram classes.
func (d *Dictionary) NumFingerprints() int {
	return len(d.fingerprints)
}
