package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"bookcipher/internal/book"
	"bookcipher/internal/ctxlog"
	"bookcipher/internal/library"
	"bookcipher/internal/rec"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newBooksCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Manage the books stored in the library",
	}

	var replace bool
	add := &cobra.Command{
		Use:   "add NAME FILE",
		Short: "Store a book file in the library under NAME",
		Args:  cobra.ExactArgs(2),
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string) error {
			text, err := book.ReadText(args[1])
			if err != nil {
				return err
			}

			record, err := library.Add(args[0], text, replace, time.Now())
			if err != nil {
				return err
			}

			ctxlog.Get(cmd.Context()).Info("book added",
				"name", args[0], "length", record.Length, "fingerprint", record.Fingerprint)
			return nil
		}),
	}
	add.Flags().BoolVar(&replace, "replace", false, "Overwrite an existing book with the same name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the books in the library",
		Args:  cobra.NoArgs,
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHARACTERS\tSIZE\tFINGERPRINT\tADDED")
			for name, record := range library.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					name,
					humanize.Comma(int64(record.Length)),
					humanize.Bytes(uint64(len(record.Text))),
					record.Fingerprint[:16],
					humanize.Time(record.Added))
			}
			return w.Flush()
		}),
	}

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a book from the library",
		Args:  cobra.ExactArgs(1),
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string) error {
			return library.Remove(args[0])
		}),
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

type runE func(cmd *cobra.Command, args []string) error

// withLibrary opens the library around run.
func (a *app) withLibrary(run runE) runE {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer rec.Error(&err)

		library.Open(a.config.Library)
		defer ctxlog.Close(cmd.Context(), "library", library.Closer())

		return run(cmd, args)
	}
}
