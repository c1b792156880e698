package cipher

import (
	"errors"
	"fmt"
)

var ErrCharacterNotInBook = errors.New("character not in book")

// CharacterNotInBookError reports a message character with no occurrence in the book.
// Offset is the character's index in the message.
type CharacterNotInBookError struct {
	Char   rune
	Offset int
}

func (e *CharacterNotInBookError) Error() string {
	return fmt.Sprintf("character %q (%U) at offset %d was not found in the book", e.Char, e.Char, e.Offset)
}

func (e *CharacterNotInBookError) Is(target error) bool {
	return target == ErrCharacterNotInBook
}
