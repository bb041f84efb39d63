package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/keyword"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/rag"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/store"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("create document request", zap.String("title", input.Title))

	doc, err := s.rag.IngestDocument(r.Context(), &input)
	if errors.Is(err, rag.ErrNoEmbedder) {
		// Without an embedder the document is stored and chunked; vectors
		// arrive later through AddEmbeddings.
		doc, err = s.rag.AddDocument(r.Context(), &input)
	}
	if err != nil {
		s.logger.Error("create document failed", zap.Error(err))
		s.respondStoreError(w, err)
		return
	}
	if s.keyword != nil {
		if err := s.keyword.Index(r.Context(), doc); err != nil {
			s.logger.Warn("keyword indexing failed", zap.String("id", doc.ID), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	selector := map[string]any{}
	if status := r.URL.Query().Get("status"); status != "" {
		selector["status"] = status
	}
	if tag := r.URL.Query().Get("tag"); tag != "" {
		selector["metadata.tags"] = tag
	}
	q := storage.Query{
		Selector: selector,
		Sort:     []storage.SortField{{Field: "createdAt", Desc: true}},
	}
	docs, err := s.store.SearchDocuments(r.Context(), q)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondStoreError(w, err)
		return
	}
	// Content can be large; the list endpoint returns documents without it.
	for _, d := range docs {
		d.Content = ""
		d.Chunks = nil
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondStoreError(w, err)
		return
	}
	if s.keyword != nil {
		if err := s.keyword.Delete(r.Context(), id); err != nil {
			s.logger.Warn("keyword delete failed", zap.String("id", id), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type searchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	vec, err := s.rag.EmbedQuery(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, rag.ErrNoEmbedder) {
			s.respondError(w, http.StatusNotImplemented, "semantic search requires an embedder")
			return
		}
		s.logger.Error("embed query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	results, err := s.rag.SemanticSearch(r.Context(), req.Query, vec, rag.SearchOptions{
		Limit:     req.Limit,
		Threshold: req.Threshold,
	})
	if err != nil {
		s.logger.Error("semantic search failed", zap.Error(err))
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	if s.keyword == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	hits, err := s.keyword.Search(r.Context(), req.Query, limit, &keyword.SearchOptions{TitleBoost: 3.0})
	if err != nil {
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type keywordResult struct {
		Document *models.Document `json:"document"`
		Score    float64          `json:"score"`
	}
	results := make([]keywordResult, 0, len(hits))
	for _, hit := range hits {
		doc, err := s.store.GetDocument(r.Context(), hit.ID)
		if err != nil {
			// Index entry for a deleted document; skip it.
			continue
		}
		doc.Content = ""
		doc.Chunks = nil
		results = append(results, keywordResult{Document: doc, Score: hit.Score})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	vec, err := s.rag.EmbedQuery(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, rag.ErrNoEmbedder) {
			s.respondError(w, http.StatusNotImplemented, "context assembly requires an embedder")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ctx, err := s.rag.Context(r.Context(), req.Query, vec, rag.SearchOptions{
		Limit:     req.Limit,
		Threshold: req.Threshold,
	})
	if err != nil {
		s.logger.Error("context assembly failed", zap.Error(err))
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"context": ctx})
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var agent models.Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.CreateAgent(r.Context(), &agent); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.GetActiveAgents(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.store.GetAgent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, agent)
}

func (s *Server) handleAgentUsage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.IncrementAgentUsage(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var conv models.Conversation
	if err := json.NewDecoder(r.Body).Decode(&conv); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.CreateConversation(r.Context(), &conv); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, conv)
}

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var msg models.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	conv, err := s.store.AddMessage(r.Context(), chi.URLParam(r, "id"), msg)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, conv)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.UpdateSettings(r.Context(), &settings); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStorageStats(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondStoreError(w, err)
		return
	}
	resp := map[string]any{
		"initialized":       stats.Initialized,
		"degraded":          stats.Degraded,
		"usage_bytes":       stats.UsageBytes,
		"vector_index_size": stats.VectorIndexSize,
		"collections":       stats.Collections,
	}
	if s.keyword != nil {
		if count, err := s.keyword.DocCount(); err == nil {
			resp["keyword_index_docs"] = count
		}
	}
	resp["config"] = map[string]any{
		"data_dir":             s.config.Storage.DataDir,
		"keyword_index_path":   s.config.Storage.KeywordIndexPath,
		"embedding_model":      s.config.Embedding.Model,
		"embedding_dimensions": s.config.Embedding.Dimensions,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Compact(r.Context()); err != nil {
		s.logger.Error("compact failed", zap.Error(err))
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "compacted"})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	s.config.Watch.Directories = s.watch.Directories()
	err := config.Save(s.configPath, s.config)
	s.configMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// respondStoreError maps store and storage errors to HTTP status codes.
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	var vErr *store.ValidationError
	switch {
	case errors.As(err, &vErr):
		s.respondError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrConflict):
		s.respondError(w, http.StatusConflict, "revision conflict")
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
