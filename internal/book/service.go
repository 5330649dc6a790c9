package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bookshelf/internal/identity"
	"bookshelf/internal/metadata"
	"bookshelf/internal/validation"
)

// Service sequences validation, metadata enrichment and persistence for every book operation.
// The caller identity always comes from a verified token; ownerID is the owner named in the
// request path and must match it.
type Service struct {
	repo      Repository
	meta      MetadataLookup
	validator *validation.Engine
	log       *slog.Logger
}

func NewService(repo Repository, meta MetadataLookup, validator *validation.Engine, log *slog.Logger) *Service {
	if validator == nil {
		validator = validation.New()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, meta: meta, validator: validator, log: log}
}

// Create validates the payload, enriches it from the catalog and stores it. A catalog failure
// aborts before anything is written.
func (s *Service) Create(ctx context.Context, caller identity.Identity, ownerID string, payload map[string]any) (Book, error) {
	owner, err := authorize(caller, ownerID)
	if err != nil {
		return Book{}, err
	}

	p, err := s.validator.Validate(validation.KindCreate, withOwner(payload, owner))
	if err != nil {
		return Book{}, err
	}
	title, _ := p.String("title")
	current, _ := p.Int("current_page")
	total, _ := p.Int("total_pages")

	switch _, err := s.repo.FindActive(ctx, owner, title); {
	case err == nil:
		return Book{}, ErrDuplicateBook
	case !errors.Is(err, ErrNotFound):
		return Book{}, err
	}

	md, err := s.meta.Lookup(ctx, title)
	if err != nil {
		if errors.Is(err, metadata.ErrUnavailable) {
			s.log.InfoContext(ctx, "metadata lookup failed", "title", title, "err", err)
			return Book{}, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
		}
		return Book{}, err
	}

	b := Book{
		OwnerID:     owner,
		Title:       title,
		CurrentPage: current,
		TotalPages:  total,
		CoverURL:    md.CoverURL,
		Finished:    DeriveFinished(current, total),
	}
	if md.Author != "" {
		b.Author = &md.Author
	}
	return s.repo.Create(ctx, b)
}

func (s *Service) List(ctx context.Context, caller identity.Identity, ownerID string, limit, offset int) ([]Book, error) {
	owner, err := authorize(caller, ownerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, owner, limit, offset)
}

// ListByAuthor is scoped to the caller's own shelf.
func (s *Service) ListByAuthor(ctx context.Context, caller identity.Identity, ownerID, author string, limit, offset int) ([]Book, error) {
	owner, err := authorize(caller, ownerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByAuthor(ctx, AuthorFilter{OwnerID: owner, Author: author, Limit: limit, Offset: offset})
}

// Get returns one of the caller's books, including soft-deleted ones.
func (s *Service) Get(ctx context.Context, caller identity.Identity, ownerID string, id int64) (Book, error) {
	owner, err := authorize(caller, ownerID)
	if err != nil {
		return Book{}, err
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if b.OwnerID != owner {
		return Book{}, ErrNotFound
	}
	return b, nil
}

// Update patches the active book identified by (owner, title). A caller-supplied finished
// flag is accepted but the stored value is always derived from the page counts.
func (s *Service) Update(ctx context.Context, caller identity.Identity, ownerID string, payload map[string]any) (Book, error) {
	owner, err := authorize(caller, ownerID)
	if err != nil {
		return Book{}, err
	}

	p, err := s.validator.Validate(validation.KindUpdate, withOwner(payload, owner))
	if err != nil {
		return Book{}, err
	}
	title, _ := p.String("title")

	return s.repo.Update(ctx, owner, title, Patch{
		CurrentPage: p.IntPtr("current_page"),
		TotalPages:  p.IntPtr("total_pages"),
		Review:      p.StringPtr("review"),
	})
}

// Delete soft-deletes the active book identified by (owner, title). When the payload also
// carries an id it must name the same book.
func (s *Service) Delete(ctx context.Context, caller identity.Identity, ownerID string, payload map[string]any) error {
	owner, err := authorize(caller, ownerID)
	if err != nil {
		return err
	}

	p, err := s.validator.Validate(validation.KindDelete, withOwner(payload, owner))
	if err != nil {
		return err
	}
	title, _ := p.String("title")

	target, err := s.repo.FindActive(ctx, owner, title)
	if err != nil {
		return err
	}
	if id, ok := p.Int64("id"); ok && id != target.ID {
		return ErrNotFound
	}

	n, err := s.repo.SoftDelete(ctx, target.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Purge physically removes a book regardless of owner. It is not reachable over HTTP.
func (s *Service) Purge(ctx context.Context, id int64) error {
	n, err := s.repo.HardDelete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func authorize(caller identity.Identity, ownerID string) (string, error) {
	if caller.Subject == "" {
		return "", identity.ErrAuthenticationFailed
	}
	if ownerID == "" {
		return "", fmt.Errorf("%w: owner id", ErrMissingParameter)
	}
	if ownerID != caller.Subject {
		return "", ErrForbidden
	}
	return caller.Subject, nil
}

// withOwner copies payload with owner_id replaced by the verified owner.
func withOwner(payload map[string]any, owner string) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["owner_id"] = owner
	return out
}
