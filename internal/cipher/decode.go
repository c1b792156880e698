package cipher

import (
	"fmt"
	"strings"

	"bookcipher/internal/book"
)

// Decode looks every position up in b. Positions must have been produced against
// the exact same book text, or the result is garbage.
func Decode(b *book.Book, positions []int) (string, error) {
	s := &strings.Builder{}
	s.Grow(len(positions))

	for i, p := range positions {
		r, err := b.At(p)
		if err != nil {
			return "", fmt.Errorf("cipher: entry %d: %w", i, err)
		}
		s.WriteRune(r)
	}
	return s.String(), nil
}
