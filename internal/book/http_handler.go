package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"bookshelf/internal/httpx"
	"bookshelf/internal/identity"
	"bookshelf/internal/validation"
)

type HTTPHandler struct {
	service *Service
	log     *slog.Logger
}

func NewHTTPHandler(service *Service, log *slog.Logger) *HTTPHandler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &HTTPHandler{service: service, log: log}
}

// Register mounts the book routes. auth wraps every route.
func (h *HTTPHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /v1/users/{id}/books", auth(http.HandlerFunc(h.List)))
	mux.Handle("POST /v1/users/{id}/books", auth(http.HandlerFunc(h.Create)))
	mux.Handle("PATCH /v1/users/{id}/books", auth(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /v1/users/{id}/books", auth(http.HandlerFunc(h.Delete)))
	mux.Handle("GET /v1/users/{id}/books/{bookID}", auth(http.HandlerFunc(h.Get)))
}

// List handles GET /v1/users/{id}/books. An author query switches to the author listing.
// @Summary List books on a shelf
// @Description List the owner's active books in insertion order
// @Tags books
// @Produce json
// @Security Bearer
// @Param id path string true "Owner id"
// @Param author query string false "Filter by author"
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Rows to skip" default(0)
// @Success 200 {object} httpx.ResultsResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /v1/users/{id}/books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset, err := pageParams(query.Get("limit"), query.Get("offset"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var books []Book
	if author := query.Get("author"); author != "" {
		books, err = h.service.ListByAuthor(r.Context(), caller(r), r.PathValue("id"), author, limit, offset)
	} else {
		books, err = h.service.List(r.Context(), caller(r), r.PathValue("id"), limit, offset)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSONResults(w, http.StatusOK, books)
}

// Get handles GET /v1/users/{id}/books/{bookID}
// @Summary Get a book
// @Tags books
// @Produce json
// @Security Bearer
// @Param id path string true "Owner id"
// @Param bookID path int true "Book id"
// @Success 200 {object} httpx.ResultsResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/users/{id}/books/{bookID} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("bookID"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, r, ErrNotFound)
		return
	}

	b, err := h.service.Get(r.Context(), caller(r), r.PathValue("id"), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSONResults(w, http.StatusOK, b)
}

// Create handles POST /v1/users/{id}/books
// @Summary Add a book
// @Description Validate, enrich from Open Library and store a new book
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Owner id"
// @Success 200 {object} httpx.ResultsResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /v1/users/{id}/books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := h.service.Create(r.Context(), caller(r), r.PathValue("id"), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSONResults(w, http.StatusOK, b)
}

// Update handles PATCH /v1/users/{id}/books
// @Summary Update reading progress
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Owner id"
// @Success 200 {object} httpx.ResultsResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /v1/users/{id}/books [patch]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	b, err := h.service.Update(r.Context(), caller(r), r.PathValue("id"), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSONResults(w, http.StatusOK, b)
}

// Delete handles DELETE /v1/users/{id}/books
// @Summary Remove a book from the shelf
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Owner id"
// @Success 200 {object} httpx.DeletedResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/users/{id}/books [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), caller(r), r.PathValue("id"), payload); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSONDeleted(w)
}

func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	st := StatusFor(err)
	if st.HTTP >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFrom(r),
			"err", err,
		)
	}

	var details []httpx.ErrorDetail
	for _, v := range st.Details {
		details = append(details, httpx.ErrorDetail{Field: v.Field, Message: v.Message})
	}
	httpx.JSONError(w, st.HTTP, st.Code, st.Message, details)
}

func caller(r *http.Request) identity.Identity {
	id, _ := httpx.IdentityFrom(r.Context())
	return id
}

func decodeObject(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, requestError("body", "body is too large")
		}
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return nil, requestError("body", "body must be a JSON object")
	}
	return payload, nil
}

func pageParams(limitStr, offsetStr string) (int, int, error) {
	var violations []validation.Violation
	limit, offset := DefaultLimit, 0

	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			violations = append(violations, validation.Violation{Field: "limit", Message: "limit must be a positive integer"})
		} else {
			limit = n
		}
	}
	if offsetStr != "" {
		n, err := strconv.Atoi(offsetStr)
		if err != nil || n < 0 {
			violations = append(violations, validation.Violation{Field: "offset", Message: "offset must be a non-negative integer"})
		} else {
			offset = n
		}
	}

	if len(violations) > 0 {
		return 0, 0, &validation.Error{Schema: "book.list", Violations: violations}
	}
	return limit, offset, nil
}

func requestError(field, message string) error {
	return &validation.Error{Schema: "request", Violations: []validation.Violation{{Field: field, Message: message}}}
}
