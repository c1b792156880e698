package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync/atomic"

	"bookcipher/internal/artifact"
	"bookcipher/internal/book"
	"bookcipher/internal/cipher"
	"bookcipher/internal/ctxlog"
	"bookcipher/internal/library"
	"bookcipher/internal/op"
	"bookcipher/internal/rec"

	"github.com/spf13/cobra"
)

const banner = `
    ____                   __            ______    _              __
   / __ )  ____   ____    / /__         / ____/   (_)    ____    / /_   ___    _____
  / __  | / __ \ / __ \  / //_/        / /       / /    / __ \  / __ \ / _ \  / ___/
 / /_/ / / /_/ // /_/ / / ,<          / /___    / /    / /_/ / / / / //  __/ / /
/_____/  \____/ \____/ /_/|_|         \____/   /_/    / .___/ /_/ /_/ \___/ /_/
                                                     /_/
`

type app struct {
	cfgFile string
	config  Config
	logs    io.Closer
	log     *slog.Logger

	mode     string
	bookFile string
	bookName string
	input    string
	output   string
	format   string
	workers  int
	seed     uint64
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "bookcipher",
		Short: "Encipher and unencipher messages using a book as the key",
		Long: banner + `
Every character of the message is replaced by the position of one of its
occurrences in the book. The same book is needed to unencipher.`,
		Example: `  bookcipher -m e -b KingJamesBible.txt -i sourcemessage.txt -o output.txt
  bookcipher -m u -b KingJamesBible.txt -i output.txt -o unenciphered.txt`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setup,
		RunE:              a.run,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.bookcipher/config.yaml)")

	f := root.Flags()
	f.StringVarP(&a.mode, "mode", "m", "", "Mode: encipher (e) or unencipher (u)")
	f.StringVarP(&a.bookFile, "bookfilename", "b", "", "Book filename")
	f.StringVar(&a.bookName, "book", "", "Name of a book stored in the library, instead of --bookfilename")
	f.StringVarP(&a.input, "inputfilename", "i", "", "Input file to be processed")
	f.StringVarP(&a.output, "outputfilename", "o", "", "Output file to be created")
	f.StringVar(&a.format, "format", "", "Cipher file format: json or msgpack (default from config)")
	f.IntVar(&a.workers, "workers", 0, "Goroutines used to encipher (default from config)")
	f.Uint64Var(&a.seed, "seed", 0, "Seed for reproducible enciphering (0 picks a random seed)")
	root.MarkFlagsMutuallyExclusive("bookfilename", "book")

	root.AddCommand(
		newBooksCommand(a),
		newServeCommand(a),
	)

	return root, a
}

// execute runs the command and closes the log file whatever the outcome.
// Cobra skips post-run hooks once RunE has failed.
func execute(ctx context.Context, root *cobra.Command, a *app) error {
	err := root.ExecuteContext(ctx)
	if err != nil && a.log != nil {
		a.log.Error("command failed", "error", err)
	}
	return errors.Join(err, a.teardown())
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	dir, err := configDir()
	if err != nil {
		return err
	}

	cfgFile, explicit := a.cfgFile, a.cfgFile != ""
	if !explicit {
		cfgFile = filepath.Join(dir, "config.yaml")
	}

	a.config, err = LoadConfig(cmd.Context(), cfgFile, explicit, DefaultConfig(dir))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, closer, err := ctxlog.Setup(cmd.Context(), "bookcipher", a.config.Log)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.logs = closer
	a.log = ctxlog.Get(ctx)
	cmd.SetContext(ctx)
	return nil
}

func (a *app) teardown() error {
	if a.logs == nil {
		return nil
	}
	err := a.logs.Close()
	a.logs = nil
	return err
}

// newRand returns per-worker random sources. With a seed the sources, and
// therefore the enciphered positions, are reproducible.
func (a *app) newRand() func() cipher.Rand {
	var worker atomic.Uint64
	return func() cipher.Rand {
		if a.seed == 0 {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		return rand.New(rand.NewPCG(a.seed, worker.Add(1)))
	}
}

func (a *app) run(cmd *cobra.Command, args []string) (err error) {
	defer rec.Error(&err)

	if a.mode == "" {
		return cmd.Help()
	}

	var unencipher bool
	switch a.mode {
	case "encipher", "e":
	case "unencipher", "u":
		unencipher = true
	default:
		return fmt.Errorf("invalid mode %q: choose from encipher, e, unencipher, u", a.mode)
	}

	switch {
	case a.bookFile == "" && a.bookName == "":
		return fmt.Errorf("one of --bookfilename or --book is required")
	case a.input == "":
		return fmt.Errorf("--inputfilename is required")
	case a.output == "":
		return fmt.Errorf("--outputfilename is required")
	}

	formatName := a.format
	if formatName == "" {
		formatName = a.config.Cipher.Format
	}
	format, err := artifact.ParseFormat(formatName)
	if err != nil {
		return err
	}
	if unencipher && a.format == "" {
		// Cipher files carry their own format.
		format = ""
	}

	workers := a.workers
	if workers == 0 {
		workers = a.config.Cipher.Workers
	}

	req := op.Request{
		Input:    a.input,
		Output:   a.output,
		BookPath: a.bookFile,
		Format:   format,
		Workers:  workers,
		NewRand:  a.newRand(),
	}
	if a.bookName != "" {
		req.Book, err = a.libraryBook(cmd, a.bookName)
		if err != nil {
			return err
		}
		req.BookPath = "library:" + a.bookName
	}

	if unencipher {
		return op.Unencipher(cmd.Context(), req)
	}
	return op.Encipher(cmd.Context(), req)
}

func (a *app) libraryBook(cmd *cobra.Command, name string) (*book.Book, error) {
	library.Open(a.config.Library)
	defer ctxlog.Close(cmd.Context(), "library", library.Closer())

	b, _, err := library.Get(name)
	return b, err
}
