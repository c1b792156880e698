package main

import (
	"fmt"
	"os"

	"bookcipher/internal/artifact"
	"bookcipher/internal/book"
	"bookcipher/internal/cipher"
)

func main() {
	if len(os.Args) <= 2 {
		fmt.Println("Usage: decode <book file> <positions, e.g. [4,0]>")
		return
	}

	b, err := book.Load(os.Args[1])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	positions, err := artifact.Unmarshal(artifact.JSON, []byte(os.Args[2]))
	if err != nil {
		fmt.Println("Positions must be a JSON array of whole numbers.")
		os.Exit(1)
	}

	s, err := cipher.Decode(b, positions)
	if err != nil {
		fmt.Println("Decode error:")
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Println(s)
}
