// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"time"

	"github.com/ManuGH/vidmark/internal/log"
)

// AccessLog logs one line per request. Probe and scrape endpoints log at
// debug so they do not drown the rest.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mw := &metricsWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(mw, r)

		logger := log.WithComponentFromContext(r.Context(), "api")
		ev := logger.Info()
		if !shouldTrace(r) {
			ev = logger.Debug()
		}
		if traceID, _ := ExtractTraceContext(r); traceID != "" {
			ev = ev.Str("trace_id", traceID)
		}
		ev.Str(log.FieldEvent, "http.request").
			Str("method", r.Method).
			Str(log.FieldPath, r.URL.Path).
			Int("status", mw.statusCode).
			Int(log.FieldBytes, mw.bytesWritten).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}
