package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/did-method-plc/go-diddoc"
	"github.com/did-method-plc/go-diddoc/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newTestServer(t *testing.T) (http.Handler, docstore.DocStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// named shared-cache memory database, so every pooled connection sees the same tables
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	store, err := docstore.NewGormDocStoreWithDialector(sqlite.Open(dsn), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := NewServer(store, ":0", logger)
	return s.Handler(), store
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("../testdata/" + name)
	require.NoError(t, err)
	return b
}

func TestHandleIndex(t *testing.T) {
	handler, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.String())
}

func TestHandleHealth(t *testing.T) {
	handler, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "version")
}

func TestHandlePutGetDoc(t *testing.T) {
	assert := assert.New(t)
	handler, _ := newTestServer(t)
	body := loadFixture(t, "doc_full.json")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("PUT", "/did:example:123456789abcdefghi", strings.NewReader(string(body))))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var put PutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &put))
	assert.Equal("did:example:123456789abcdefghi", put.DID)
	assert.NotEmpty(put.CID)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/did:example:123456789abcdefghi", nil))
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("application/did+json", w.Header().Get("Content-Type"))
	assert.Equal(`"`+put.CID+`"`, w.Header().Get("ETag"))
	assert.JSONEq(string(body), w.Body.String())

	doc, err := diddoc.Parse(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(doc.Authentication(), 2)
}

func TestHandleGetDoc_NotFound(t *testing.T) {
	handler, _ := newTestServer(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/did:example:nonexistent", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestHandlePutDoc_Invalid(t *testing.T) {
	handler, store := newTestServer(t)

	cases := map[string]string{
		"malformed JSON": `{"@context":`,
		"empty context":  `{"@context":[],"id":"did:example:put"}`,
		"bad entry":      `{"@context":"c","id":"did:example:put","authentication":[1]}`,
		"id mismatch":    `{"@context":"c","id":"did:example:other"}`,
		"conflict":       string(loadFixture(t, "doc_conflicting_keys.json")),
	}
	for name, body := range cases {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("PUT", "/did:example:put", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), name)
		assert.NotEmpty(t, resp["message"], name)
	}

	entry, err := store.GetDoc(context.Background(), "did:example:put")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestHandleDeleteDoc(t *testing.T) {
	handler, store := newTestServer(t)
	ctx := context.Background()

	doc, err := diddoc.New(diddoc.ContextV1, "did:example:gone")
	require.NoError(t, err)
	_, err = store.PutDoc(ctx, doc)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("DELETE", "/did:example:gone", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("DELETE", "/did:example:gone", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleList(t *testing.T) {
	assert := assert.New(t)
	handler, store := newTestServer(t)
	ctx := context.Background()

	for _, id := range []string{"did:example:b", "did:example:a", "did:example:c"} {
		doc, err := diddoc.New(diddoc.ContextV1, id)
		require.NoError(t, err)
		_, err = store.PutDoc(ctx, doc)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_list?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal([]string{"did:example:a", "did:example:b"}, resp.Subjects)
	assert.Equal("did:example:b", resp.Cursor)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_list?limit=2&after="+resp.Cursor, nil))
	require.Equal(t, http.StatusOK, w.Code)
	resp = ListResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal([]string{"did:example:c"}, resp.Subjects)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_list?limit=zero", nil))
	assert.Equal(http.StatusBadRequest, w.Code)
}
