// Package book provides the immutable reference text that cipher positions index into.
package book

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

var (
	ErrEmpty           = errors.New("book is empty")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// IndexOutOfRangeError reports a position outside [0, Length).
type IndexOutOfRangeError struct {
	Position int
	Length   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("position %d out of range for book of length %d", e.Position, e.Length)
}

func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// Book is a read-only sequence of characters. A character is a single rune.
type Book struct {
	text  []rune
	print string
}

// New builds a book from text. Text must be valid UTF-8 and contain at least one character.
func New(text string) (*Book, error) {
	if !utf8.ValidString(text) {
		return nil, errors.New("book: text is not valid UTF-8")
	}
	if text == "" {
		return nil, fmt.Errorf("book: %w", ErrEmpty)
	}

	sum := blake3.Sum256([]byte(text))

	return &Book{
		text:  []rune(text),
		print: hex.EncodeToString(sum[:]),
	}, nil
}

// Load reads a UTF-8 book file, normalizing line endings to "\n".
func Load(path string) (*Book, error) {
	text, err := ReadText(path)
	if err != nil {
		return nil, err
	}

	b, err := New(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ReadText reads a UTF-8 text file with universal newline handling.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read %q: not valid UTF-8", path)
	}
	return NormalizeNewlines(string(data)), nil
}

// NormalizeNewlines converts "\r\n" and lone "\r" to "\n".
func NormalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func (b *Book) Len() int {
	return len(b.text)
}

func (b *Book) At(i int) (rune, error) {
	if i < 0 || i >= len(b.text) {
		return 0, &IndexOutOfRangeError{Position: i, Length: len(b.text)}
	}
	return b.text[i], nil
}

// Find returns the lowest index i in [from, to) holding r.
// Bounds are clamped to the book.
func (b *Book) Find(r rune, from, to int) (int, bool) {
	from = max(from, 0)
	to = min(to, len(b.text))

	for i := from; i < to; i++ {
		if b.text[i] == r {
			return i, true
		}
	}
	return -1, false
}

// FindFrom returns the lowest index at or after start holding r. It does not wrap.
func (b *Book) FindFrom(r rune, start int) (int, bool) {
	return b.Find(r, start, len(b.text))
}

// Fingerprint is the hex BLAKE3-256 digest of the book text.
func (b *Book) Fingerprint() string {
	return b.print
}

func (b *Book) String() string {
	return string(b.text)
}
