package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const bookColumns = `id, owner_id, title, current_page, total_pages, author, cover_url, review,
	finished, created_at, updated_at, inactive_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Ping reports whether the store is reachable.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return classify(r.db.Ping(timeoutCtx))
}

func (r *PostgresRepo) Create(ctx context.Context, b Book) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := findActive(timeoutCtx, r.db, b.OwnerID, b.Title, false)
	switch {
	case err == nil:
		return Book{}, ErrDuplicateBook
	case !errors.Is(err, ErrNotFound):
		return Book{}, err
	}

	const sql = `
		INSERT INTO books (owner_id, title, current_page, total_pages, author, cover_url, review, finished, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING ` + bookColumns

	out, err := scanBook(r.db.QueryRow(timeoutCtx, sql,
		b.OwnerID, b.Title, b.CurrentPage, b.TotalPages, b.Author, b.CoverURL, b.Review,
		DeriveFinished(b.CurrentPage, b.TotalPages),
	))
	if err != nil {
		return Book{}, classify(err)
	}
	return out, nil
}

// GetByID returns the row even when it is soft-deleted.
func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	books, err := queryBooks(timeoutCtx, r.db, `SELECT `+bookColumns+` FROM books WHERE id = $1 LIMIT 2`, id)
	if err != nil {
		return Book{}, err
	}
	return exactlyOne(books, ErrNotFound)
}

func (r *PostgresRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Book, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner_id", ErrMissingParameter)
	}
	limit, offset = normalizePage(limit, offset)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	const sql = `SELECT ` + bookColumns + `
		FROM books
		WHERE owner_id = $1 AND inactive_at IS NULL
		ORDER BY id
		LIMIT $2 OFFSET $3`
	return queryBooks(timeoutCtx, r.db, sql, ownerID, limit, offset)
}

func (r *PostgresRepo) ListByAuthor(ctx context.Context, f AuthorFilter) ([]Book, error) {
	limit, offset := normalizePage(f.Limit, f.Offset)

	clauses := []string{"inactive_at IS NULL"}
	args := []any{}
	argn := 1

	if f.OwnerID != "" {
		clauses = append(clauses, fmt.Sprintf("owner_id = $%d", argn))
		args = append(args, f.OwnerID)
		argn++
	}
	if f.Author != "" {
		clauses = append(clauses, fmt.Sprintf("author = $%d", argn))
		args = append(args, f.Author)
		argn++
	}

	sql := fmt.Sprintf(`SELECT %s FROM books WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
		bookColumns, strings.Join(clauses, " AND "), argn, argn+1)
	args = append(args, limit, offset)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return queryBooks(timeoutCtx, r.db, sql, args...)
}

func (r *PostgresRepo) FindActive(ctx context.Context, ownerID, title string) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return findActive(timeoutCtx, r.db, ownerID, title, false)
}

// Update locks the single active row matching (ownerID, title), applies p and recomputes finished.
func (r *PostgresRepo) Update(ctx context.Context, ownerID, title string, p Patch) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return Book{}, classify(err)
	}
	defer tx.Rollback(timeoutCtx)

	current, err := findActive(timeoutCtx, tx, ownerID, title, true)
	if errors.Is(err, ErrNotFound) {
		return Book{}, ErrUpdateTargetNotFound
	}
	if err != nil {
		return Book{}, err
	}

	next := p.Apply(current)
	const sql = `
		UPDATE books
		SET current_page = $1, total_pages = $2, review = $3, finished = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + bookColumns

	out, err := scanBook(tx.QueryRow(timeoutCtx, sql, next.CurrentPage, next.TotalPages, next.Review, next.Finished, current.ID))
	if err != nil {
		return Book{}, classify(err)
	}
	if err := tx.Commit(timeoutCtx); err != nil {
		return Book{}, classify(err)
	}
	return out, nil
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id int64) (int64, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `UPDATE books SET inactive_at = NOW() WHERE id = $1 AND inactive_at IS NULL`, id)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

// HardDelete removes the row physically. Only the admin CLI and tests call it.
func (r *PostgresRepo) HardDelete(ctx context.Context, id int64) (int64, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

func findActive(ctx context.Context, q querier, ownerID, title string, forUpdate bool) (Book, error) {
	sql := `SELECT ` + bookColumns + `
		FROM books
		WHERE owner_id = $1 AND title = $2 AND inactive_at IS NULL
		ORDER BY id
		LIMIT 2`
	if forUpdate {
		sql += " FOR UPDATE"
	}
	books, err := queryBooks(ctx, q, sql, ownerID, title)
	if err != nil {
		return Book{}, err
	}
	return exactlyOne(books, ErrNotFound)
}

func exactlyOne(books []Book, notFound error) (Book, error) {
	switch len(books) {
	case 0:
		return Book{}, notFound
	case 1:
		return books[0], nil
	default:
		return Book{}, ErrAmbiguousResult
	}
}

func queryBooks(ctx context.Context, q querier, sql string, args ...any) ([]Book, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Title, &b.CurrentPage, &b.TotalPages, &b.Author, &b.CoverURL, &b.Review,
		&b.Finished, &b.CreatedAt, &b.UpdatedAt, &b.InactiveAt,
	)
	return b, err
}

// classify maps driver errors onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateBook, pgErr.ConstraintName)
	}

	var connErr *pgconn.ConnectError
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return fmt.Errorf("book store: %w", err)
}
