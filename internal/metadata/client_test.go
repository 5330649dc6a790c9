package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/platform/openlibrary"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Search(ctx context.Context, title string) ([]Result, error) {
	args := m.Called(ctx, title)
	res, _ := args.Get(0).([]Result)
	return res, args.Error(1)
}

type failingCache struct {
	getErr error
	setErr error
	sets   int
}

func (c *failingCache) Get(context.Context, string) ([]byte, error) { return nil, c.getErr }

func (c *failingCache) Set(context.Context, string, []byte, time.Duration) error {
	c.sets++
	return c.setErr
}

var dune = Result{
	Title:       "Dune",
	Authors:     []string{"Frank Herbert", "Brian Herbert"},
	Identifiers: []string{"9780441172719", "0441172717"},
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisCache(rdb)
}

func TestLookup_MissPopulatesCache(t *testing.T) {
	mr, cache := newRedis(t)
	catalog := new(mockCatalog)
	catalog.On("Search", mock.Anything, "Dune").Return([]Result{dune}, nil).Once()

	c := NewClient(cache, catalog, nil, Options{TTL: time.Hour})
	m, err := c.Lookup(context.Background(), "Dune")
	require.NoError(t, err)

	assert.Equal(t, "Dune", m.Title)
	assert.Equal(t, "Frank Herbert", m.Author)
	assert.Equal(t, dune.Identifiers, m.Identifiers)
	require.NotNil(t, m.CoverURL)
	assert.Equal(t, "https://covers.openlibrary.org/b/isbn/9780441172719-M.jpg", m.CoverURL.Medium)
	assert.Equal(t, "https://covers.openlibrary.org/b/isbn/9780441172719-L.jpg", m.CoverURL.Large)

	assert.True(t, mr.Exists("book-data:Dune"))
	assert.Equal(t, time.Hour, mr.TTL("book-data:Dune"))
	catalog.AssertExpectations(t)
}

func TestLookup_DefaultTTLAlwaysApplied(t *testing.T) {
	mr, cache := newRedis(t)
	catalog := new(mockCatalog)
	catalog.On("Search", mock.Anything, "Dune").Return([]Result{dune}, nil)

	c := NewClient(cache, catalog, nil, Options{})
	_, err := c.Lookup(context.Background(), "Dune")
	require.NoError(t, err)

	assert.Equal(t, DefaultTTL, mr.TTL("book-data:Dune"))
}

func TestLookup_HitSkipsCatalog(t *testing.T) {
	mr, cache := newRedis(t)
	cached, _ := json.Marshal(Metadata{Title: "Dune", Author: "Cached Author"})
	require.NoError(t, mr.Set("book-data:Dune", string(cached)))

	catalog := new(mockCatalog)
	c := NewClient(cache, catalog, nil, Options{})

	m, err := c.Lookup(context.Background(), "Dune")
	require.NoError(t, err)
	assert.Equal(t, "Cached Author", m.Author)
	catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestLookup_Idempotent(t *testing.T) {
	_, cache := newRedis(t)
	catalog := new(mockCatalog)
	catalog.On("Search", mock.Anything, "Dune").Return([]Result{dune}, nil).Once()

	c := NewClient(cache, catalog, nil, Options{})

	first, err := c.Lookup(context.Background(), "Dune")
	require.NoError(t, err)
	second, err := c.Lookup(context.Background(), "Dune")
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
	catalog.AssertNumberOfCalls(t, "Search", 1)
}

func TestLookup_CacheOutageFallsThrough(t *testing.T) {
	cache := &failingCache{getErr: errors.New("connection refused"), setErr: errors.New("connection refused")}
	catalog := new(mockCatalog)
	catalog.On("Search", mock.Anything, "Dune").Return([]Result{dune}, nil).Twice()

	c := NewClient(cache, catalog, nil, Options{})
	for range 2 {
		m, err := c.Lookup(context.Background(), "Dune")
		require.NoError(t, err)
		assert.Equal(t, "Frank Herbert", m.Author)
	}
	assert.Equal(t, 2, cache.sets)
	catalog.AssertExpectations(t)
}

func TestLookup_RedisDown(t *testing.T) {
	mr, cache := newRedis(t)
	mr.Close()

	catalog := new(mockCatalog)
	catalog.On("Search", mock.Anything, "Dune").Return([]Result{dune}, nil)

	c := NewClient(cache, catalog, nil, Options{CacheTimeout: 100 * time.Millisecond})
	m, err := c.Lookup(context.Background(), "Dune")
	require.NoError(t, err)
	assert.Equal(t, "Dune", m.Title)
}

func TestLookup_UndecodableEntryRefetched(t *testing.T) {
	mr, cache := newRedis(t)
	require.NoError(t, mr.Set("book-data:Dune", "{not json"))

	catalog := new(mockCatalog)
	catalog.On("Search", mock.Anything, "Dune").Return([]Result{dune}, nil).Once()

	c := NewClient(cache, catalog, nil, Options{})
	m, err := c.Lookup(context.Background(), "Dune")
	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", m.Author)

	stored, err := mr.Get("book-data:Dune")
	require.NoError(t, err)
	assert.Contains(t, stored, `"author":"Frank Herbert"`)
}

func TestLookup_NoMatch(t *testing.T) {
	mr, cache := newRedis(t)
	catalog := new(mockCatalog)
	catalog.On("Search", mock.Anything, "Nothing").Return([]Result{}, nil)

	c := NewClient(cache, catalog, nil, Options{})
	_, err := c.Lookup(context.Background(), "Nothing")

	assert.True(t, errors.Is(err, ErrNoMatch))
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, mr.Exists("book-data:Nothing"))
}

func TestLookup_CatalogError(t *testing.T) {
	_, cache := newRedis(t)
	catalog := new(mockCatalog)
	catalog.On("Search", mock.Anything, "Dune").Return(nil, errors.New("dial tcp: refused"))

	c := NewClient(cache, catalog, nil, Options{})
	_, err := c.Lookup(context.Background(), "Dune")

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrNoMatch))
}

func TestLookup_CatalogTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	catalog := NewOpenLibraryCatalog(openlibrary.NewClient("test", 0, openlibrary.WithBaseURL(srv.URL)))
	c := NewClient(NopCache{}, catalog, nil, Options{CatalogTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := c.Lookup(context.Background(), "Dune")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Less(t, time.Since(start), time.Second)
}

func TestOpenLibraryCatalog_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"numFound":1,"docs":[{"title":"Dune","author_name":["Frank Herbert"],"isbn":["9780441172719"]}]}`))
	}))
	defer srv.Close()

	catalog := NewOpenLibraryCatalog(openlibrary.NewClient("test", 0, openlibrary.WithBaseURL(srv.URL)))
	c := NewClient(nil, catalog, nil, Options{})

	m, err := c.Lookup(context.Background(), "Dune")
	require.NoError(t, err)
	assert.Equal(t, Metadata{
		Title:       "Dune",
		Author:      "Frank Herbert",
		Identifiers: []string{"9780441172719"},
		CoverURL: &CoverURL{
			Medium: "https://covers.openlibrary.org/b/isbn/9780441172719-M.jpg",
			Large:  "https://covers.openlibrary.org/b/isbn/9780441172719-L.jpg",
		},
	}, m)
}

func TestCoversFor(t *testing.T) {
	assert.Nil(t, CoversFor(nil))
	assert.Nil(t, CoversFor([]string{""}))
	assert.Equal(t, "https://covers.openlibrary.org/b/isbn/a-M.jpg", CoversFor([]string{"a", "b"}).Medium)
}
