package book

import (
	"context"
	"sync"
	"time"
)

// memoryRepo is an in-process Repository with the same semantics as PostgresRepo.
type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []Book
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1}
}

func (m *memoryRepo) Create(_ context.Context, b Book) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.findActive(b.OwnerID, b.Title); err == nil {
		return Book{}, ErrDuplicateBook
	}
	b.ID = m.nextID
	m.nextID++
	b.Finished = DeriveFinished(b.CurrentPage, b.TotalPages)
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt, b.InactiveAt = nil, nil
	m.rows = append(m.rows, b)
	return b, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found []Book
	for _, b := range m.rows {
		if b.ID == id {
			found = append(found, b)
		}
	}
	return exactlyOne(found, ErrNotFound)
}

func (m *memoryRepo) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]Book, error) {
	if ownerID == "" {
		return nil, ErrMissingParameter
	}
	return m.list(func(b Book) bool { return b.OwnerID == ownerID }, limit, offset), nil
}

func (m *memoryRepo) ListByAuthor(_ context.Context, f AuthorFilter) ([]Book, error) {
	return m.list(func(b Book) bool {
		if f.OwnerID != "" && b.OwnerID != f.OwnerID {
			return false
		}
		return f.Author == "" || (b.Author != nil && *b.Author == f.Author)
	}, f.Limit, f.Offset), nil
}

func (m *memoryRepo) FindActive(_ context.Context, ownerID, title string) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findActive(ownerID, title)
}

func (m *memoryRepo) Update(_ context.Context, ownerID, title string, p Patch) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, err := m.findActive(ownerID, title)
	if err == ErrNotFound {
		return Book{}, ErrUpdateTargetNotFound
	}
	if err != nil {
		return Book{}, err
	}
	next := p.Apply(cur)
	now := time.Now().UTC()
	next.UpdatedAt = &now
	m.replace(next)
	return next, nil
}

func (m *memoryRepo) SoftDelete(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, b := range m.rows {
		if b.ID == id && b.InactiveAt == nil {
			now := time.Now().UTC()
			m.rows[i].InactiveAt = &now
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memoryRepo) HardDelete(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, b := range m.rows {
		if b.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memoryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memoryRepo) findActive(ownerID, title string) (Book, error) {
	var found []Book
	for _, b := range m.rows {
		if b.OwnerID == ownerID && b.Title == title && b.InactiveAt == nil {
			found = append(found, b)
		}
	}
	return exactlyOne(found, ErrNotFound)
}

func (m *memoryRepo) replace(b Book) {
	for i := range m.rows {
		if m.rows[i].ID == b.ID {
			m.rows[i] = b
		}
	}
}

func (m *memoryRepo) list(keep func(Book) bool, limit, offset int) []Book {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit, offset = normalizePage(limit, offset)
	out := []Book{}
	skipped := 0
	for _, b := range m.rows {
		if b.InactiveAt != nil || !keep(b) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, b)
	}
	return out
}
