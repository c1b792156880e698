// Package cipher implements the book cipher: message characters are replaced by
// positions of matching characters in a reference book.
package cipher

import (
	"bookcipher/internal/book"
)

// Rand is the source of search start positions. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Encode replaces every character of msg with the index of one of its occurrences in b.
// The search for each character starts at a random index and wraps to the beginning of
// the book, so repeated characters spread over the whole book.
func Encode(b *book.Book, msg string, rng Rand) ([]int, error) {
	positions := make([]int, 0, len(msg))

	offset := 0
	for _, r := range msg {
		p, err := locate(b, r, rng)
		if err != nil {
			return nil, &CharacterNotInBookError{Char: r, Offset: offset}
		}
		positions = append(positions, p)
		offset++
	}
	return positions, nil
}

func locate(b *book.Book, r rune, rng Rand) (int, error) {
	n := b.Len()
	start := rng.IntN(n)

	if p, ok := b.Find(r, start, n); ok {
		return p, nil
	}
	// Wrap around to the part before start.
	if p, ok := b.Find(r, 0, start); ok {
		return p, nil
	}
	return -1, ErrCharacterNotInBook
}
