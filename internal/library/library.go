// Package library stores named books in a BoltDB file so they can be referenced by name.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"time"

	"bookcipher/internal/book"

	"go.etcd.io/bbolt"
)

var (
	bucketBooks = []byte("books")
)

var (
	ErrNotFound = errors.New("book not found")
	ErrExists   = errors.New("book already exists")
)

var db *bbolt.DB

func Open(config Config) {
	if db != nil {
		panic("library: already opened")
	}
	if config.File == "" {
		panic("library: file is required")
	}

	err := os.MkdirAll(filepath.Dir(config.File), 0755)
	if err != nil {
		panic(fmt.Errorf("library: create db dir: %w", err))
	}

	db, err = bbolt.Open(config.File, 0600, &bbolt.Options{
		Timeout: 30 * time.Second,
	})
	if err != nil {
		panic(fmt.Errorf("library: open bbolt db: %w", err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{
			bucketBooks,
		} {
			_, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return fmt.Errorf("create bucket %q: %w", bucket, err)
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		db = nil
		panic(fmt.Errorf("library: initialize buckets: %w", err))
	}
}

func Close() error {
	if db == nil {
		panic("library: not opened")
	}

	err := db.Close()
	db = nil
	if err != nil {
		return fmt.Errorf("library: close bbolt db: %w", err)
	}
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

func Closer() io.Closer {
	return closerFunc(Close)
}

// Record is the stored form of a book.
type Record struct {
	Text        string    `json:"text"`
	Fingerprint string    `json:"fingerprint"`
	Length      int       `json:"length"`
	Added       time.Time `json:"added"`
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Errorf("library: must: %w", err))
	}
	return v
}

func modify(name string, modify func(*Record, bool) (*Record, error)) error {
	if db == nil {
		panic("library: not opened")
	}

	return db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBooks)
		if b == nil {
			return fmt.Errorf("library: books bucket not found")
		}

		var record *Record
		exists := false

		data := b.Get([]byte(name))
		if data == nil {
			record = &Record{}
		} else {
			err := json.Unmarshal(data, &record)
			if err != nil {
				return fmt.Errorf("library: unmarshal record for %q: %w", name, err)
			}
			exists = true
		}

		var err error
		if record, err = modify(record, exists); err != nil {
			return fmt.Errorf("library: book %q: %w", name, err)
		}

		if record == nil {
			if !exists {
				return nil
			}
			return b.Delete([]byte(name))
		}
		return b.Put([]byte(name), must(json.Marshal(record)))
	})
}

// Add stores text under name. An existing book is only overwritten when replace is set.
func Add(name, text string, replace bool, added time.Time) (Record, error) {
	if name == "" {
		return Record{}, errors.New("library: name is required")
	}

	bk, err := book.New(text)
	if err != nil {
		return Record{}, fmt.Errorf("library: book %q: %w", name, err)
	}

	var stored Record
	err = modify(name, func(_ *Record, exists bool) (*Record, error) {
		if exists && !replace {
			return nil, ErrExists
		}

		stored = Record{
			Text:        bk.String(),
			Fingerprint: bk.Fingerprint(),
			Length:      bk.Len(),
			Added:       added.UTC(),
		}
		return &stored, nil
	})
	if err != nil {
		return Record{}, err
	}
	return stored, nil
}

func Remove(name string) error {
	return modify(name, func(_ *Record, exists bool) (*Record, error) {
		if !exists {
			return nil, ErrNotFound
		}
		return nil, nil
	})
}

// Get loads the named book.
func Get(name string) (*book.Book, Record, error) {
	if db == nil {
		panic("library: not opened")
	}

	var record Record
	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBooks)
		if b == nil {
			return fmt.Errorf("library: books bucket not found")
		}

		data := b.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("library: book %q: %w", name, ErrNotFound)
		}

		err := json.Unmarshal(data, &record)
		if err != nil {
			return fmt.Errorf("library: unmarshal record for %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, Record{}, err
	}

	bk, err := book.New(record.Text)
	if err != nil {
		return nil, Record{}, fmt.Errorf("library: book %q: %w", name, err)
	}
	if bk.Fingerprint() != record.Fingerprint {
		return nil, Record{}, fmt.Errorf("library: book %q: stored fingerprint does not match text", name)
	}
	return bk, record, nil
}

var errStop = fmt.Errorf("stop iteration")

// All iterates over the stored books in name order.
func All() iter.Seq2[string, Record] {
	if db == nil {
		panic("library: not opened")
	}

	return func(yield func(string, Record) bool) {
		err := db.View(func(tx *bbolt.Tx) error {
			b := tx.Bucket(bucketBooks)
			if b == nil {
				return fmt.Errorf("library: books bucket not found")
			}

			return b.ForEach(func(k, v []byte) error {
				var record Record
				err := json.Unmarshal(v, &record)
				if err != nil {
					return fmt.Errorf("library: unmarshal record for %q: %w", k, err)
				}

				if !yield(string(k), record) {
					return errStop
				}
				return nil
			})
		})

		if err != nil {
			if errors.Is(err, errStop) {
				return
			}
			panic(fmt.Errorf("library: list books: %w", err))
		}
	}
}
