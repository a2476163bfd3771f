// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/records"
)

var errNoRecords = errors.New("records are not configured")

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a 400 response
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// writeNotFound writes a 404 Not Found response
func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

// writeServiceUnavailable writes a 503 Service Unavailable response
func writeServiceUnavailable(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeServiceUnavailable(w, errNoRecords)
		return
	}
	stats, err := s.records.Stats(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldEvent, "api.stats_failed").Msg("read stats")
		writeServiceUnavailable(w, errors.New("stats unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type jobsResponse struct {
	Jobs []records.Job `json:"jobs"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeServiceUnavailable(w, errNoRecords)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, fmt.Errorf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}

	jobs, err := s.records.RecentJobs(r.Context(), limit)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldEvent, "api.jobs_failed").Msg("read recent jobs")
		writeServiceUnavailable(w, errors.New("jobs unavailable"))
		return
	}
	if jobs == nil {
		jobs = []records.Job{}
	}
	writeJSON(w, http.StatusOK, jobsResponse{Jobs: jobs})
}
