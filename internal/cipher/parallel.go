package cipher

import (
	"context"

	"bookcipher/internal/book"

	"golang.org/x/sync/errgroup"
)

// EncodeParallel is Encode spread over workers goroutines. The message is cut into
// contiguous chunks and every worker draws from its own source returned by newRand.
// The first failure cancels the remaining workers and no positions are returned.
func EncodeParallel(ctx context.Context, b *book.Book, msg string, workers int, newRand func() Rand) ([]int, error) {
	runes := []rune(msg)
	if workers > len(runes) {
		workers = len(runes)
	}
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Encode(b, msg, newRand())
	}

	positions := make([]int, len(runes))
	chunk := (len(runes) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(runes); lo += chunk {
		hi := min(lo+chunk, len(runes))
		rng := newRand()

		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}

				p, err := locate(b, runes[i], rng)
				if err != nil {
					return &CharacterNotInBookError{Char: runes[i], Offset: i}
				}
				positions[i] = p
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return positions, nil
}
