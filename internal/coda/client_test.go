package coda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), &common.CodaConfig{
		APIToken: "test-token-1234",
		BaseURL:  server.URL,
	}, arbor.NewLogger())
	require.NoError(t, err)
	return client
}

func TestClient_RequiresToken(t *testing.T) {
	_, err := NewClient(context.Background(), &common.CodaConfig{}, arbor.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API token")
}

func TestClient_ListDocsSendsBearerToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/docs", r.URL.Path)
		w.Write([]byte(`{"items":[{"id":"SbXPwSgG","type":"doc","name":"Handbook"}]}`))
	}))

	docs, err := client.ListDocs(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "SbXPwSgG", docs[0].ID)
	assert.Equal(t, "Handbook", docs[0].Name)
	assert.Equal(t, "Bearer test-token-1234", gotAuth)
}

func TestClient_NonOKStatusIsFatal(t *testing.T) {
	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"statusCode":403,"message":"Insufficient permissions"}`))
	}))

	_, err := client.DocInfo(context.Background(), "SbXPwSgG")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "Insufficient permissions")
	assert.Equal(t, 1, calls, "API errors must not be retried")
}

func TestClient_ExportDoc(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/SbXPwSgG", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"SbXPwSgG","name":"Handbook"}`))
	})
	mux.HandleFunc("/docs/SbXPwSgG/pages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"canvas-1","name":"Welcome"}]}`))
	})
	mux.HandleFunc("/docs/SbXPwSgG/pages/canvas-1/content", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"canvas-1","content":"# Welcome"}`))
	})
	mux.HandleFunc("/docs/SbXPwSgG/tables", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"grid-1","name":"Roster","rowCount":2}]}`))
	})
	mux.HandleFunc("/docs/SbXPwSgG/tables/grid-1/rows", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"i-1","name":"Ada","values":{"c-1":"Ada"}},{"id":"i-2","name":"Grace","values":{"c-1":"Grace"}}]}`))
	})
	client := newTestClient(t, mux)

	export, err := client.ExportDoc(context.Background(), "SbXPwSgG")
	require.NoError(t, err)
	assert.Equal(t, "Handbook", export.Doc.Name)
	require.Len(t, export.Pages, 1)
	assert.Equal(t, "# Welcome", export.Pages[0].Content.Content)
	require.Len(t, export.Tables, 1)
	assert.Equal(t, "Roster", export.Tables[0].Table.Name)
	assert.Len(t, export.Tables[0].Rows, 2)
}

func TestClient_ExportDocAbortsOnPageError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/SbXPwSgG", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"SbXPwSgG","name":"Handbook"}`))
	})
	mux.HandleFunc("/docs/SbXPwSgG/pages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"canvas-1","name":"Welcome"}]}`))
	})
	mux.HandleFunc("/docs/SbXPwSgG/pages/canvas-1/content", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"statusCode":404,"message":"Page not found"}`))
	})
	client := newTestClient(t, mux)

	_, err := client.ExportDoc(context.Background(), "SbXPwSgG")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Page not found")
}
