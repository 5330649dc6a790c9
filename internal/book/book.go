package book

import (
	"time"

	"bookshelf/internal/metadata"
)

// Book is one title on an owner's shelf.
type Book struct {
	ID          int64              `json:"id"`
	OwnerID     string             `json:"owner_id"`
	Title       string             `json:"title"`
	CurrentPage int                `json:"current_page"`
	TotalPages  int                `json:"total_pages"`
	Author      *string            `json:"author"`
	CoverURL    *metadata.CoverURL `json:"cover_url"`
	Review      *string            `json:"review"`
	Finished    bool               `json:"finished"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   *time.Time         `json:"updated_at"`
	InactiveAt  *time.Time         `json:"inactive_at"`
}

// Patch holds the mutable fields of an update. Nil means unchanged.
type Patch struct {
	CurrentPage *int
	TotalPages  *int
	Review      *string
}

// AuthorFilter narrows ListByAuthor. Empty fields are ignored.
type AuthorFilter struct {
	OwnerID string
	Author  string
	Limit   int
	Offset  int
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// DeriveFinished is the only source of the finished flag.
func DeriveFinished(currentPage, totalPages int) bool {
	return currentPage == totalPages
}

// Apply returns b with p applied and finished recomputed.
func (p Patch) Apply(b Book) Book {
	if p.CurrentPage != nil {
		b.CurrentPage = *p.CurrentPage
	}
	if p.TotalPages != nil {
		b.TotalPages = *p.TotalPages
	}
	if p.Review != nil {
		b.Review = p.Review
	}
	b.Finished = DeriveFinished(b.CurrentPage, b.TotalPages)
	return b
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
