package primitives

import (
	"fmt"
	"iter"
	"math/bits"
	"strings"
)

// MaxAlphabetSize is the largest alphabet a Fingerprint can represent.
const MaxAlphabetSize = 32

// Fingerprint is a letter-membership bitmask: bit i is set iff the i-th
// letter of the alphabet occurs in the word at least once.
type Fingerprint uint32

// Count returns the number of distinct letters in the fingerprint.
func (f Fingerprint) Count() int {
	return bits.OnesCount32(uint32(f))
}

// Disjoint reports whether f and other share no letter.
func (f Fingerprint) Disjoint(other Fingerprint) bool {
	return f&other == 0
}

// Alphabet is a contiguous run of lowercase letters starting at 'a'.
type Alphabet struct {
	min  rune
	size int
}

func NewAlphabet(size int) (Alphabet, error) {
	if size < 1 || size > MaxAlphabetSize {
		return Alphabet{}, fmt.Errorf("alphabet size %d is out of range [1, %d]", size, MaxAlphabetSize)
	}
	return Alphabet{min: 'a', size: size}, nil
}

// DefaultAlphabet is the English alphabet, a to z.
func DefaultAlphabet() Alphabet {
	return Alphabet{min: 'a', size: 26}
}

// Size returns the number of letters in the alphabet.
func (a Alphabet) Size() int {
	return a.size
}

// Mask returns the fingerprint with every letter of the alphabet set.
func (a Alphabet) Mask() Fingerprint {
	return Fingerprint(uint64(1)<<uint(a.size) - 1)
}

// Contains reports whether r is a letter of the alphabet.
func (a Alphabet) Contains(r rune) bool {
	return r >= a.min && r < a.min+rune(a.size)
}

// Encode returns the fingerprint of word. Repeated letters add nothing and
// bytes outside the alphabet are ignored, so such words simply end up with a
// smaller population count.
func (a Alphabet) Encode(word string) Fingerprint {
	var f Fingerprint
	for i := 0; i < len(word); i++ {
		r := rune(word[i])
		if !a.Contains(r) {
			continue
		}
		f |= 1 << uint(r-a.min)
	}
	return f
}

// DecodeSingleBit returns the letter of the only bit set in f.
//
// Bits outside the alphabet must be masked off by the caller. It panics if f
// does not have exactly one bit set within the alphabet; use MissingLetter for
// a recoverable variant.
func (a Alphabet) DecodeSingleBit(f Fingerprint) rune {
	if f&^a.Mask() != 0 || f.Count() != 1 {
		panic(fmt.Sprintf("cannot decode fingerprint %#x: want exactly one bit set in the first %d", uint32(f), a.size))
	}
	return a.min + rune(bits.TrailingZeros32(uint32(f)))
}

// MissingLetter returns the single letter absent from union. The boolean is
// false if zero or more than one letter of the alphabet is absent.
func (a Alphabet) MissingLetter(union Fingerprint) (rune, bool) {
	missing := ^union & a.Mask()
	if missing.Count() != 1 {
		return 0, false
	}
	return a.DecodeSingleBit(missing), true
}

// Letters iterates the letters of f in alphabet order.
func (a Alphabet) Letters(f Fingerprint) iter.Seq[rune] {
	return func(yield func(rune) bool) {
		b := uint32(f & a.Mask())
		for b != 0 {
			tz := bits.TrailingZeros32(b)
			if !yield(a.min + rune(tz)) {
				return
			}
			b &= b - 1
		}
	}
}

// String renders f as its letters, e.g. "abcde".
func (a Alphabet) String(f Fingerprint) string {
	var sb strings.Builder
	for r := range a.Letters(f) {
		sb.WriteRune(r)
	}
	return sb.String()
}
