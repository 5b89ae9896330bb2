package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/hyperjump/shirabe/internal/embedding"
	"github.com/hyperjump/shirabe/internal/indexer"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/reader"
	"github.com/hyperjump/shirabe/internal/search"
	"go.uber.org/zap"
)

type indexRequest struct {
	Path string `json:"path"`
}

type statusResponse struct {
	Indexed  bool               `json:"indexed"`
	Indexing bool               `json:"indexing"`
	Watching string             `json:"watching,omitempty"`
	Stats    *models.IndexStats `json:"stats,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.logger.Debug("index request", zap.String("path", req.Path))
	summary, err := s.tool.IndexPath(r.Context(), req.Path)
	if err != nil {
		s.logger.Error("indexing failed", zap.String("path", req.Path), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	if s.watcher != nil {
		if stats := s.tool.IndexStats(); stats != nil {
			if err := s.watcher.Watch(stats.Folder); err != nil {
				s.logger.Warn("watch folder failed", zap.String("path", stats.Folder), zap.Error(err))
			}
		}
	}
	s.respondJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	response, err := s.tool.Search(r.Context(), query.Query, query.TopK)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Indexed:  s.tool.IsIndexed(),
		Indexing: s.tool.Indexing(),
		Stats:    s.tool.IndexStats(),
	}
	if s.watcher != nil {
		resp.Watching = s.watcher.Root()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.tool.ClearIndex()
	if s.watcher != nil {
		if err := s.watcher.Watch(""); err != nil {
			s.logger.Warn("stop watching failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrNotIndexed), errors.Is(err, indexer.ErrIndexInProgress):
		return http.StatusConflict
	case errors.Is(err, indexer.ErrNoFiles), errors.Is(err, indexer.ErrNoChunks),
		errors.Is(err, reader.ErrNotDirectory), errors.Is(err, fs.ErrNotExist),
		errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, embedding.ErrMissingAPIKey):
		return http.StatusInternalServerError
	case errors.Is(err, embedding.ErrEmbeddingService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
