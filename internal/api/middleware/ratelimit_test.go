// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_EnforcesLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 3, WindowSize: time.Second})(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1").Code, "request %d", i+1)
	}

	w := hit(h, "192.168.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`, w.Body.String())
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 2, WindowSize: time.Second})(okHandler())

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "192.168.1.1").Code)
	}
	assert.Equal(t, http.StatusOK, hit(h, "192.168.1.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "192.168.1.1").Code)
}

func TestPerMinute(t *testing.T) {
	h := PerMinute(5)(okHandler())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	}
	w := hit(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}
