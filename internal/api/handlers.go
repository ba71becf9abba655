package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/oscillatelabsllc/nflpicker/internal/notebook"
	"github.com/oscillatelabsllc/nflpicker/internal/odds"
	"github.com/oscillatelabsllc/nflpicker/internal/session"
)

// StartSessionRequest represents the request body for starting a session
type StartSessionRequest struct {
	Week int    `json:"week"`
	Day  string `json:"day,omitempty"`
}

// SubmitPicksRequest represents the request body for submitting picks
type SubmitPicksRequest struct {
	Predictions models.Predictions `json:"predictions"`
}

// WriteNotebookRequest represents the request body for a notebook write
type WriteNotebookRequest struct {
	Content string `json:"content"`
	Append  *bool  `json:"append,omitempty"`
	Week    *int   `json:"week,omitempty"`
}

// handleStartSession opens a new session, replacing any current one
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Week < 1 {
		errorResponse(w, http.StatusBadRequest, "week is required")
		return
	}

	sess, err := s.env.Start(r.Context(), req.Week, req.Day)
	if errors.Is(err, odds.ErrNoSlate) {
		errorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to start session: "+err.Error())
		return
	}

	successResponse(w, sess.Overview())
}

// handleGetSession returns the current session overview
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.env.Current()
	if err != nil {
		errorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	successResponse(w, sess.Overview())
}

// handleSessionSearch runs a budgeted search. Refusals and adapter failures
// come back as 200 with the error field set.
func (s *Server) handleSessionSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	successResponse(w, s.env.Search(r.Context(), req))
}

// handleSubmitPicks validates and records the current session's picks
func (s *Server) handleSubmitPicks(w http.ResponseWriter, r *http.Request) {
	var req SubmitPicksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.env.Submit(r.Context(), req.Predictions)
	if errors.Is(err, session.ErrNoSession) {
		errorResponse(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to record predictions: "+err.Error())
		return
	}

	if !result.Accepted {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(result)
		return
	}
	successResponse(w, result)
}

func notebookError(w http.ResponseWriter, err error) {
	if errors.Is(err, notebook.ErrInvalidIdentity) {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	errorResponse(w, http.StatusInternalServerError, err.Error())
}

// handleReadNotebook returns a notebook's content
func (s *Server) handleReadNotebook(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	content, err := s.notebooks.Read(r.Context(), identity)
	if err != nil {
		notebookError(w, err)
		return
	}

	successResponse(w, map[string]interface{}{
		"identity": identity,
		"content":  content,
	})
}

// handleWriteNotebook appends to or replaces a notebook. A write over the
// token ceiling is reported with success=false and 200.
func (s *Server) handleWriteNotebook(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")

	var req WriteNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	appendMode := true
	if req.Append != nil {
		appendMode = *req.Append
	}

	result, err := s.notebooks.Write(r.Context(), identity, req.Content, appendMode, req.Week)
	if err != nil {
		notebookError(w, err)
		return
	}
	successResponse(w, result)
}

// handleSearchNotebook finds a term in a notebook
func (s *Server) handleSearchNotebook(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	query := r.URL.Query().Get("query")
	if query == "" {
		errorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	found, err := s.notebooks.Search(r.Context(), identity, query)
	if err != nil {
		notebookError(w, err)
		return
	}

	successResponse(w, map[string]interface{}{
		"identity": identity,
		"query":    query,
		"result":   found,
	})
}

// handleNotebookStats returns token usage for a notebook
func (s *Server) handleNotebookStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.notebooks.Stats(r.Context(), chi.URLParam(r, "identity"))
	if err != nil {
		notebookError(w, err)
		return
	}
	successResponse(w, stats)
}
