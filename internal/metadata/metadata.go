package metadata

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the catalog could not produce metadata for a title.
	ErrUnavailable = errors.New("metadata unavailable")
	// ErrNoMatch is returned when the catalog answered with zero documents.
	ErrNoMatch = fmt.Errorf("%w: no catalog match", ErrUnavailable)
	// ErrCacheMiss is returned by Cache.Get for absent keys.
	ErrCacheMiss = errors.New("metadata: cache miss")
)

const coverURLTemplate = "https://covers.openlibrary.org/b/isbn/%s-%s.jpg"

// CoverURL holds the two image sizes derived from a catalog identifier.
type CoverURL struct {
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// Metadata is the normalized catalog record stored in the cache.
type Metadata struct {
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Identifiers []string  `json:"identifiers,omitempty"`
	CoverURL    *CoverURL `json:"cover_url,omitempty"`
}

// CoversFor builds cover URLs from the first identifier, or nil when there is none.
func CoversFor(identifiers []string) *CoverURL {
	if len(identifiers) == 0 || identifiers[0] == "" {
		return nil
	}
	id := identifiers[0]
	return &CoverURL{
		Medium: fmt.Sprintf(coverURLTemplate, id, "M"),
		Large:  fmt.Sprintf(coverURLTemplate, id, "L"),
	}
}

// CacheKey returns the cache key for a title. The title is used verbatim.
func CacheKey(title string) string {
	return "book-data:" + title
}

// Result is a catalog hit before normalization.
type Result struct {
	Title       string
	Authors     []string
	Identifiers []string
}

// Catalog searches the external book catalog. Results keep the catalog's ordering.
type Catalog interface {
	Search(ctx context.Context, title string) ([]Result, error)
}

func normalize(r Result) Metadata {
	m := Metadata{
		Title:       r.Title,
		Identifiers: r.Identifiers,
		CoverURL:    CoversFor(r.Identifiers),
	}
	if len(r.Authors) > 0 {
		m.Author = r.Authors[0]
	}
	return m
}
