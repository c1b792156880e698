package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"unicode/utf8"

	"bookcipher/internal/artifact"
	"bookcipher/internal/book"
	"bookcipher/internal/cipher"
)

var errUsage = errors.New("Usage: encode <book file> <message> [seed]")

func run(args []string) (string, error) {
	if len(args) < 2 {
		return "", errUsage
	}

	if !utf8.ValidString(args[1]) {
		return "", errors.New("message must be valid UTF-8")
	}

	b, err := book.Load(args[0])
	if err != nil {
		return "", err
	}

	seed := rand.Uint64()
	if len(args) > 2 {
		seed, err = strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return "", errors.New("seed must be a positive whole number")
		}
	}

	positions, err := cipher.Encode(b, args[1], rand.New(rand.NewPCG(seed, 0)))
	if err != nil {
		return "", fmt.Errorf("encode error: %w", err)
	}

	data, err := artifact.Marshal(artifact.JSON, positions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func main() {
	out, err := run(os.Args[1:])
	if errors.Is(err, errUsage) {
		fmt.Println(err)
		return
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Println(out)
}
