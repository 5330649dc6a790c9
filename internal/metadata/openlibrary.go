package metadata

import (
	"context"

	"bookshelf/internal/platform/openlibrary"
)

// OpenLibraryCatalog adapts the Open Library search endpoint to Catalog.
type OpenLibraryCatalog struct {
	client *openlibrary.Client
}

func NewOpenLibraryCatalog(client *openlibrary.Client) *OpenLibraryCatalog {
	return &OpenLibraryCatalog{client: client}
}

func (c *OpenLibraryCatalog) Search(ctx context.Context, title string) ([]Result, error) {
	res, err := c.client.SearchByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(res.Docs))
	for _, d := range res.Docs {
		out = append(out, Result{Title: d.Title, Authors: d.AuthorNames, Identifiers: d.ISBN})
	}
	return out, nil
}
