// Package wordsource reads candidate words for a clique search.
package wordsource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const readBufferSize = 64 * 1024

// Normalize reports whether s is a candidate word of the given length: exactly
// length ASCII letters in either case. The word is returned lower-cased.
func Normalize(s string, length int) (string, bool) {
	if len(s) != length {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return "", false
		}
	}
	return strings.ToLower(s), true
}

// ReadWords returns the candidate words of r, one per line, in input order.
// Lines that are not candidates are skipped silently, however long they are;
// read failures are returned.
func ReadWords(ctx context.Context, r io.Reader, length int) ([]string, error) {
	var words []string
	br := bufio.NewReaderSize(r, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, err := br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			// Longer than any word; drop the rest of the line.
			for err == bufio.ErrBufferFull {
				_, err = br.ReadSlice('\n')
			}
			if err == io.EOF {
				return words, nil
			}
			if err != nil {
				return nil, fmt.Errorf("read words: %w", err)
			}
			continue
		}

		if len(line) > 0 {
			text := strings.TrimSuffix(strings.TrimSuffix(string(line), "\n"), "\r")
			if word, ok := Normalize(text, length); ok {
				words = append(words, word)
			}
		}
		if err == io.EOF {
			return words, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read words: %w", err)
		}
	}
}
