package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/orieg/edu-policy-navigator-sub001/internal/lookup"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
	"github.com/orieg/edu-policy-navigator-sub001/internal/vector"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.Limit > s.config.Search.MaxLimit {
		query.Limit = s.config.Search.MaxLimit
	}

	snap := s.manager.Snapshot()
	if snap == nil {
		s.respondError(w, http.StatusServiceUnavailable, "corpus not loaded")
		return
	}

	queryVector := query.Vector
	if len(queryVector) == 0 {
		var err error
		queryVector, err = s.embedder.Embed(r.Context(), query.Query)
		if err != nil {
			s.logger.Error("query embedding failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "embedding failed")
			return
		}
	}

	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.Int("limit", query.Limit))

	params := query.Params(s.config.Search.TopClusters, s.config.Search.PerCluster)
	results, err := snap.Engine.Search(r.Context(), queryVector, params)
	if err != nil {
		var dimErr *vector.ErrDimensionMismatch
		if errors.As(err, &dimErr) {
			s.respondError(w, http.StatusBadRequest, dimErr.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Score filtering and rank assignment are service concerns; the engine
	// returns the raw merged ranking.
	minScore := s.config.Search.DefaultMinScore
	if query.MinScore != nil {
		minScore = *query.MinScore
	}
	if minScore > 0 {
		filtered := results[:0]
		for _, res := range results {
			if res.Score >= minScore {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}
	for i, res := range results {
		res.Rank = i + 1
	}

	s.respondJSON(w, http.StatusOK, &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	})
}

// lookupResponse is the payload for the name-lookup endpoint.
type lookupResponse struct {
	Results     []*lookup.Result `json:"results"`
	Suggestions []string         `json:"suggestions,omitempty"`
	Total       int              `json:"total"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	snap := s.manager.Snapshot()
	if snap == nil {
		s.respondError(w, http.StatusServiceUnavailable, "corpus not loaded")
		return
	}
	if snap.Lookup == nil {
		s.respondError(w, http.StatusNotImplemented, "lookup not enabled")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := s.config.Search.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > s.config.Search.MaxLimit {
			n = s.config.Search.MaxLimit
		}
		limit = n
	}
	fuzzy := r.URL.Query().Get("fuzzy") == "true"

	results, err := snap.Lookup.Search(r.Context(), q, limit, fuzzy)
	if err != nil {
		s.logger.Error("lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := &lookupResponse{Results: results, Total: len(results)}
	if len(results) == 0 {
		for _, term := range strings.Fields(q) {
			resp.Suggestions = append(resp.Suggestions, snap.Lookup.Suggest(term, 3)...)
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	snap := s.manager.Snapshot()
	if snap == nil {
		s.respondError(w, http.StatusServiceUnavailable, "corpus not loaded")
		return
	}
	id := chi.URLParam(r, "id")
	doc, ok := snap.Store.Document(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.manager.Snapshot()
	if snap == nil {
		s.respondError(w, http.StatusServiceUnavailable, "corpus not loaded")
		return
	}
	resp := map[string]interface{}{
		"clusters":   snap.Store.NumClusters(),
		"documents":  snap.Store.NumDocuments(),
		"dimensions": snap.Store.Dimensions(),
		"loaded_at":  snap.LoadedAt,
		"corpus": map[string]interface{}{
			"path":   snap.Corpus.Path,
			"format": snap.Corpus.Format,
		},
		"config": map[string]interface{}{
			"top_clusters": s.config.Search.TopClusters,
			"per_cluster":  s.config.Search.PerCluster,
			"workers":      s.config.Search.Workers,
		},
	}
	if snap.Lookup != nil {
		resp["lookup_records"] = snap.Lookup.DocCount()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("reload requested")
	if err := s.manager.Load(); err != nil {
		s.logger.Error("reload failed, previous snapshot still serving", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap := s.manager.Snapshot()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "reloaded",
		"loaded_at": snap.LoadedAt,
		"documents": snap.Store.NumDocuments(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
