package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/sworddrill/internal/config"
	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/search"
	"github.com/hyperjump/sworddrill/internal/storage"
	"github.com/hyperjump/sworddrill/internal/testutil"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := testutil.NewStorage(t)
	return newServerWith(t, store)
}

func newServerWith(t *testing.T, store storage.Storage) *Server {
	t.Helper()
	idx := testutil.NewIndex(t)
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = ""
	cfg.Storage.BleveIndexPath = ""
	cfg.Server.PoolSize = 4

	srv, err := NewServer(search.NewEngine(store, idx), store, idx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleReference(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/api/psalms.119.105.json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	data := decode[versesData](t, rec)
	require.Len(t, data.Verses, 1)
	assert.Equal(t, testutil.Psalm119v105, data.Verses[0].Words)
	assert.Equal(t, "Psalms 119:105", data.ReferenceString)
	assert.Equal(t, "Psalms", data.Book.Name)

	rec = get(t, srv, "/api/Psalms%20119:1-999.json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data = decode[versesData](t, rec)
	assert.Len(t, data.Verses, 176)
	assert.Equal(t, "Psalms 119:1-176", data.ReferenceString)
}

func TestHandleReference_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{"invalid reference", "/api/john.json", http.StatusBadRequest, "is not a valid Bible reference"},
		{"unknown book", "/api/hezekiah.1.1.json", http.StatusNotFound, "'hezekiah' was not found."},
		{"missing chapter", "/api/genesis.50.json", http.StatusNotFound, "'Genesis 50' was not found."},
		{"no json suffix", "/api/john.3.16", http.StatusNotFound, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.Contains(t, body["error"], tt.body)
		})
	}
}

func TestHandleSearch(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/api/search?q=fire+hammer+rock")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[searchData](t, rec)
	require.Len(t, data.Matches, 1)
	assert.Equal(t, "Jeremiah 23:29", data.Matches[0].Reference)
	assert.Equal(t, "/api/Jeremiah.23.29.json", data.Matches[0].Link)
	assert.Contains(t, data.Matches[0].Text, "<em>hammer</em>")

	rec = get(t, srv, "/api/search?q=psalms%20119:105")
	require.Equal(t, http.StatusOK, rec.Code)
	data = decode[searchData](t, rec)
	require.Len(t, data.Matches, 1)
	assert.Equal(t, testutil.Psalm119v105, data.Matches[0].Text)

	// Search hits and passage verses carry the same unescaped text.
	rec = get(t, srv, "/api/search?q=passover")
	require.Equal(t, http.StatusOK, rec.Code)
	data = decode[searchData](t, rec)
	require.Len(t, data.Matches, 1)
	assert.Equal(t, strings.Replace(testutil.Exodus1211, "passover", "<em>passover</em>", 1), data.Matches[0].Text)

	for _, q := range []string{"1+", "", "hezekiah+1:1", "light+1:1"} {
		rec = get(t, srv, "/api/search?q="+q)
		require.Equal(t, http.StatusOK, rec.Code, q)
		data = decode[searchData](t, rec)
		assert.Empty(t, data.Matches, q)
		assert.NotNil(t, data.Matches, q)
	}
}

func TestHandleBooks(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/api/books")
	require.Equal(t, http.StatusOK, rec.Code)
	books := decode[map[string][]models.Book](t, rec)
	require.Len(t, books["books"], 66)
	assert.Equal(t, "Genesis", books["books"][0].Name)

	rec = get(t, srv, "/api/books/psa")
	require.Equal(t, http.StatusOK, rec.Code)
	book := decode[bookData](t, rec)
	assert.Equal(t, "Psalms", book.Book.Name)
	assert.Len(t, book.Chapters, 150)

	rec = get(t, srv, "/api/books/Song%20of%20Solomon")
	require.Equal(t, http.StatusOK, rec.Code)
	book = decode[bookData](t, rec)
	assert.Equal(t, 22, book.Book.ID)

	rec = get(t, srv, "/api/books/hezekiah")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Parameters are decoded exactly once: a literal "%61" is not "a".
	rec = get(t, srv, "/api/books/ps%2561")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "'ps%61' was not found.")
}

func TestHandleReference_EscapedSeparators(t *testing.T) {
	srv := newTestServer(t)

	// %3A is not Go's canonical escaping of ':', so the request keeps a RawPath.
	rec := get(t, srv, "/api/John%203%3A16.json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode[versesData](t, rec)
	assert.Equal(t, "John 3:16", data.ReferenceString)
	require.Len(t, data.Verses, 1)
	assert.Equal(t, testutil.John316, data.Verses[0].Words)
}

func TestHandleHealthAndStatus(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	rec = get(t, srv, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[statusData](t, rec)
	assert.Equal(t, int64(66), st.Books)
	assert.Equal(t, int64(len(testutil.Verses())), st.Verses)
	assert.Equal(t, uint64(len(testutil.Verses())), st.IndexedDocs)
	assert.Equal(t, 4, st.PoolSize)
}

type brokenStorage struct {
	storage.Storage
}

func (brokenStorage) BookByAbbreviation(context.Context, string) (*models.Book, error) {
	return nil, errors.New("disk I/O error: SELECT b.id FROM books")
}

func TestStorageFailure_GenericBody(t *testing.T) {
	srv := newServerWith(t, brokenStorage{})

	rec := get(t, srv, "/api/john.3.16.json")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "there was a database error", body["error"])
	assert.NotEmpty(t, body["error_id"])
	assert.False(t, strings.Contains(rec.Body.String(), "SELECT"))
}

func TestDispatch(t *testing.T) {
	srv := newTestServer(t)

	v, err := dispatch(context.Background(), srv.pool, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)
	_, err = dispatch(ctx, srv.pool, func(context.Context) (int, error) {
		<-block
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	srv.pool.Release()
	_, err = dispatch(context.Background(), srv.pool, func(context.Context) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, errPoolClosed)
}

func TestDispatch_BusyPool(t *testing.T) {
	srv := newTestServer(t)

	block := make(chan struct{})
	defer close(block)
	for i := 0; i < srv.pool.Cap(); i++ {
		require.NoError(t, srv.pool.Submit(func() { <-block }))
	}

	_, err := dispatch(context.Background(), srv.pool, func(context.Context) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, errPoolBusy)

	rec := get(t, srv, "/api/books")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "server is busy", decode[map[string]string](t, rec)["error"])
}
