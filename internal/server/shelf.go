package server

import (
	"sync"

	"bookcipher/internal/book"
	"bookcipher/internal/library"
)

// shelf keeps decoded books in memory after their first request. The server holds
// the library file open for its whole lifetime, so stored books cannot change under it.
type shelf struct {
	mx    sync.Mutex
	books map[string]*book.Book
	load  func(name string) (*book.Book, error)
}

func newShelf() *shelf {
	return &shelf{
		books: map[string]*book.Book{},
		load: func(name string) (*book.Book, error) {
			b, _, err := library.Get(name)
			return b, err
		},
	}
}

func (s *shelf) get(name string) (*book.Book, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	if b, ok := s.books[name]; ok {
		return b, nil
	}

	b, err := s.load(name)
	if err != nil {
		return nil, err
	}
	s.books[name] = b
	return b, nil
}
