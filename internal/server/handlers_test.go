package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/rag"
	"github.com/hyperjump/kioku/internal/store"
	"go.uber.org/zap"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func newTestServer(t *testing.T, watch WatchService) *Server {
	t.Helper()
	st, err := store.New(store.Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	embedder := embedding.NewMockEmbedder(models.EmbeddingDimensions)
	svc := rag.NewService(st, rag.WithEmbedder(embedder))

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return New(st, svc, nil, watch, cfg, "", zap.NewNop())
}

// withURLParam injects a chi URL parameter into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func TestHandleCreateDocument(t *testing.T) {
	srv := newTestServer(t, nil)

	w := postJSON(t, srv.handleCreateDocument, "/api/v1/documents", models.DocumentInput{
		Title:   "Notes",
		Content: "Some searchable content for the assistant",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var doc models.Document
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.ID == "" {
		t.Error("document id empty")
	}
	if !doc.Indexed || doc.Status != models.StatusCompleted {
		t.Errorf("indexed=%t status=%s", doc.Indexed, doc.Status)
	}
}

func TestHandleGetDocument_notFound(t *testing.T) {
	srv := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil)
	r = withURLParam(r, "id", "missing")
	w := httptest.NewRecorder()
	srv.handleGetDocument(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	srv := newTestServer(t, nil)

	created := postJSON(t, srv.handleCreateDocument, "/api/v1/documents", models.DocumentInput{
		Title:   "ToDelete",
		Content: "short-lived content",
	})
	var doc models.Document
	if err := json.NewDecoder(created.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+doc.ID, nil)
	r = withURLParam(r, "id", doc.ID)
	w := httptest.NewRecorder()
	srv.handleDeleteDocument(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID, nil)
	r = withURLParam(r, "id", doc.ID)
	w = httptest.NewRecorder()
	srv.handleGetDocument(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("deleted document still retrievable: %d", w.Code)
	}
}

func TestHandleSemanticSearch(t *testing.T) {
	srv := newTestServer(t, nil)

	content := "the quick brown fox jumps over the lazy dog"
	created := postJSON(t, srv.handleCreateDocument, "/api/v1/documents", models.DocumentInput{
		Title:   "Fox",
		Content: content,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", created.Code, created.Body.String())
	}

	// The mock embedder is deterministic, so querying with the exact chunk
	// text yields similarity 1.0.
	w := postJSON(t, srv.handleSemanticSearch, "/api/v1/search/semantic", searchRequest{
		Query: content,
		Limit: 5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Results []rag.SearchResult `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 1 {
		t.Fatalf("got %d results", len(out.Results))
	}
	if out.Results[0].Title != "Fox" {
		t.Errorf("title: %s", out.Results[0].Title)
	}
}

func TestHandleSemanticSearch_emptyQuery(t *testing.T) {
	srv := newTestServer(t, nil)
	w := postJSON(t, srv.handleSemanticSearch, "/api/v1/search/semantic", searchRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleContext(t *testing.T) {
	srv := newTestServer(t, nil)

	content := "context assembly source material"
	created := postJSON(t, srv.handleCreateDocument, "/api/v1/documents", models.DocumentInput{
		Title:   "Source",
		Content: content,
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create: %d", created.Code)
	}

	w := postJSON(t, srv.handleContext, "/api/v1/context", searchRequest{Query: content})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Context == "" {
		t.Error("context empty")
	}
}

func TestHandleCreateAgent_validation(t *testing.T) {
	srv := newTestServer(t, nil)
	w := postJSON(t, srv.handleCreateAgent, "/api/v1/agents", models.Agent{Name: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestHandleSettingsRoundTrip(t *testing.T) {
	srv := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	w := httptest.NewRecorder()
	srv.handleGetSettings(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("get status: %d", w.Code)
	}
	var settings models.Settings
	if err := json.NewDecoder(w.Body).Decode(&settings); err != nil {
		t.Fatal(err)
	}

	settings.RAG.MaxResults = 9
	data, _ := json.Marshal(settings)
	r = httptest.NewRequest(http.MethodPut, "/api/v1/settings", bytes.NewReader(data))
	w = httptest.NewRecorder()
	srv.handleUpdateSettings(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("put status: %d, body %s", w.Code, w.Body.String())
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	w = httptest.NewRecorder()
	srv.handleGetSettings(w, r)
	var updated models.Settings
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatal(err)
	}
	if updated.RAG.MaxResults != 9 {
		t.Errorf("maxResults: %d", updated.RAG.MaxResults)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.handleStatus(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]any
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["initialized"] != true {
		t.Errorf("initialized: %v", out["initialized"])
	}
}

func TestHandleWatchDirectories(t *testing.T) {
	watchDir := t.TempDir()
	mock := &mockWatchService{dirs: []string{"/tmp/docs"}}
	srv := newTestServer(t, mock)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/watch/directories", nil)
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesList(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("list status: %d", w.Code)
	}

	w = postJSON(t, srv.handleWatchDirectoriesAdd, "/api/v1/watch/directories", watchAddRequest{Path: watchDir})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status: %d, body %s", w.Code, w.Body.String())
	}
	if len(mock.dirs) != 2 {
		t.Errorf("dirs after add: %v", mock.dirs)
	}

	r = httptest.NewRequest(http.MethodDelete, "/api/v1/watch/directories?path="+watchDir, nil)
	w = httptest.NewRecorder()
	srv.handleWatchDirectoriesRemove(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("remove status: %d, body %s", w.Code, w.Body.String())
	}
	if len(mock.dirs) != 1 {
		t.Errorf("dirs after remove: %v", mock.dirs)
	}
}

func TestHandleWatchDirectories_notEnabled(t *testing.T) {
	srv := newTestServer(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/watch/directories", nil)
	w := httptest.NewRecorder()
	srv.handleWatchDirectoriesList(w, r)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d", w.Code)
	}
}
