package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/collections"
	"github.com/mrlokans/bookshelf/internal/database/progress"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/library"
)

// LibraryCommand prints an account's collections and reading progress.
type LibraryCommand struct {
	Username     string
	DatabasePath string
	Kind         string

	Out io.Writer
}

func NewLibraryCommand() *LibraryCommand {
	return &LibraryCommand{Out: os.Stdout}
}

func (cmd *LibraryCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("library", flag.ContinueOnError)

	fs.StringVar(&cmd.Username, "user", "", "Username or email of the account (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.Kind, "type", "", "Only show one collection: favorites, reading or read")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s library -user <name> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print the collections and reading progress of an account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -user not provided")
	}
	if cmd.Kind != "" {
		if _, err := library.ParseKind(cmd.Kind); err != nil {
			return err
		}
	}

	return nil
}

func (cmd *LibraryCommand) Run() error {
	ctx := context.Background()

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	user, err := users.NewRepository(db.DB).GetUserByUsername(cmd.Username)
	if err != nil {
		return fmt.Errorf("failed to find user %q: %w", cmd.Username, err)
	}

	kinds := library.Kinds
	if cmd.Kind != "" {
		kind, _ := library.ParseKind(cmd.Kind)
		kinds = []library.Kind{kind}
	}

	shelves := collections.NewRepository(db.DB)
	fmt.Fprintf(cmd.Out, "Library of %s\n", user.Username)

	for _, kind := range kinds {
		books, err := shelves.BooksIn(ctx, user.ID, kind)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", kind, err)
		}
		fmt.Fprintf(cmd.Out, "\n%s (%d)\n", kind, len(books))
		for _, book := range books {
			fmt.Fprintf(cmd.Out, "  - %s by %s [%s]\n", book.Title, book.Author, book.ID)
		}
	}

	rows, err := progress.NewRepository(db.DB).ListProgress(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load reading progress: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	fmt.Fprintf(cmd.Out, "\nReading progress\n")
	w := tabwriter.NewWriter(cmd.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  BOOK\tLOCATION\tPROGRESS\tLAST READ")
	for _, row := range rows {
		fmt.Fprintf(w, "  %s\t%d/%d\t%.2f%%\t%s\n",
			row.BookID, row.CurrentPage, row.TotalPages, row.ProgressPercentage,
			row.LastReadAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
