package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"bookshelf/internal/book"
)

func newBooksCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Inspect and maintain stored books",
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a book, including soft-deleted ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRepo(cmd, opts, func(repo *book.PostgresRepo) error {
				b, err := repo.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(b)
			})
		},
	}

	purge := &cobra.Command{
		Use:   "purge <id>",
		Short: "Physically delete a book",
		Long: `Physically delete a book row regardless of owner or state.
This is not reachable through the HTTP API.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRepo(cmd, opts, func(repo *book.PostgresRepo) error {
				if err := book.NewService(repo, nil, nil, nil).Purge(cmd.Context(), id); err != nil {
					return err
				}
				cmd.Printf("Purged book %d\n", id)
				return nil
			})
		},
	}

	var (
		owner string
		count int
	)
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Insert generated books for an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" {
				return errors.New("--owner is required")
			}
			if count <= 0 {
				return errors.New("--count must be positive")
			}
			return withRepo(cmd, opts, func(repo *book.PostgresRepo) error {
				n, err := seedBooks(cmd.Context(), repo, owner, count, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				cmd.Printf("Inserted %d books for %s\n", n, owner)
				return nil
			})
		},
	}
	seed.Flags().StringVar(&owner, "owner", "", "Owner id the books belong to")
	seed.Flags().IntVar(&count, "count", 10, "Number of books to insert")

	cmd.AddCommand(show, purge, seed)
	return cmd
}

var seedWords = []string{
	"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
	"Nature", "History", "Future", "Reality", "Wisdom", "Light", "Darkness", "Time",
}

// seedBooks inserts count books without catalog enrichment. Titles that already exist
// on the shelf are skipped.
func seedBooks(ctx context.Context, repo book.Repository, owner string, count int, progress io.Writer) (int, error) {
	inserted := 0
	for i := 0; i < count; i++ {
		total := 100 + rand.IntN(800)
		current := rand.IntN(total + 1)
		b := book.Book{
			OwnerID:     owner,
			Title:       fmt.Sprintf("Seed Book %d - %s", i+1, seedWords[rand.IntN(len(seedWords))]),
			CurrentPage: current,
			TotalPages:  total,
			Finished:    book.DeriveFinished(current, total),
		}
		if _, err := repo.Create(ctx, b); err != nil {
			if errors.Is(err, book.ErrDuplicateBook) {
				continue
			}
			return inserted, fmt.Errorf("insert %q: %w", b.Title, err)
		}
		inserted++
		if inserted%100 == 0 {
			fmt.Fprintf(progress, "Inserted %d/%d books\n", inserted, count)
		}
	}
	return inserted, nil
}

func withRepo(cmd *cobra.Command, opts *options, fn func(*book.PostgresRepo) error) error {
	pool, err := opts.openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(book.NewPostgresRepo(pool, opts.dbTimeout))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid book id %q", s)
	}
	return id, nil
}
