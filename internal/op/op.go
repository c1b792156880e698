// Package op runs whole-file encipher and unencipher operations.
// Output files are only written once the complete result is known, and are
// replaced atomically so a failed run never leaves a partial file behind.
package op

import (
	"context"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"bookcipher/internal/artifact"
	"bookcipher/internal/book"
	"bookcipher/internal/cipher"
	"bookcipher/internal/ctxlog"
	"bookcipher/internal/rec"

	"github.com/moby/sys/atomicwriter"
)

const outputPerm = 0644

type Request struct {
	Input  string
	Output string

	// Book is used as is when set. Otherwise BookPath is loaded.
	Book     *book.Book
	BookPath string

	// Format of the cipher artifact. Empty means JSON when writing
	// and auto-detection when reading.
	Format artifact.Format

	// Workers > 1 spreads encoding over goroutines.
	Workers int
	// NewRand returns a source of search start positions; called once per worker.
	NewRand func() cipher.Rand
}

func (r Request) book() (*book.Book, error) {
	if r.Book != nil {
		return r.Book, nil
	}
	if r.BookPath == "" {
		return nil, fmt.Errorf("book is required")
	}
	return book.Load(r.BookPath)
}

// Encipher reads the plaintext at req.Input and writes its cipher positions to req.Output.
func Encipher(ctx context.Context, req Request) (err error) {
	defer rec.Wrap(&err, "encipher %q: %w", req.Input)

	logger := ctxlog.Get(ctx).With("input", req.Input, "book", req.BookPath, "output", req.Output)
	logger.Info("enciphering message")
	start := time.Now()

	if req.NewRand == nil {
		panic("op: NewRand is required")
	}

	b, err := req.book()
	if err != nil {
		return err
	}

	msg, err := book.ReadText(req.Input)
	if err != nil {
		return err
	}

	positions, err := cipher.EncodeParallel(ctx, b, msg, req.Workers, req.NewRand)
	if err != nil {
		return err
	}

	format := req.Format
	if format == "" {
		format = artifact.JSON
	}
	data, err := artifact.Marshal(format, positions)
	if err != nil {
		return err
	}

	if err := atomicwriter.WriteFile(req.Output, data, outputPerm); err != nil {
		return fmt.Errorf("write %q: %w", req.Output, err)
	}

	logger.Info("enciphering completed",
		"characters", len(positions),
		"format", format,
		"book_length", b.Len(),
		"duration", time.Since(start).String())
	return nil
}

// Unencipher reads cipher positions at req.Input and writes the plaintext to req.Output.
func Unencipher(ctx context.Context, req Request) (err error) {
	defer rec.Wrap(&err, "unencipher %q: %w", req.Input)

	logger := ctxlog.Get(ctx).With("input", req.Input, "book", req.BookPath, "output", req.Output)
	logger.Info("unenciphering message")
	start := time.Now()

	b, err := req.book()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(req.Input)
	if err != nil {
		return fmt.Errorf("read %q: %w", req.Input, err)
	}

	positions, err := artifact.Unmarshal(req.Format, data)
	if err != nil {
		return err
	}

	msg, err := cipher.Decode(b, positions)
	if err != nil {
		return err
	}

	if err := atomicwriter.WriteFile(req.Output, []byte(msg), outputPerm); err != nil {
		return fmt.Errorf("write %q: %w", req.Output, err)
	}

	logger.Info("unenciphering completed",
		"characters", utf8.RuneCountInString(msg),
		"duration", time.Since(start).String())
	return nil
}
