package book

import (
	"context"

	"bookshelf/internal/metadata"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	Create(ctx context.Context, b Book) (Book, error)
	GetByID(ctx context.Context, id int64) (Book, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Book, error)
	ListByAuthor(ctx context.Context, f AuthorFilter) ([]Book, error)
	FindActive(ctx context.Context, ownerID, title string) (Book, error)
	Update(ctx context.Context, ownerID, title string, p Patch) (Book, error)
	SoftDelete(ctx context.Context, id int64) (int64, error)
	HardDelete(ctx context.Context, id int64) (int64, error)
}

// MetadataLookup resolves catalog metadata for a title.
type MetadataLookup interface {
	Lookup(ctx context.Context, title string) (metadata.Metadata, error)
}
