// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/vidmark/internal/config"
)

const testToken = "123:abc"

// botAPI is a minimal Bot API: getMe, one /start update, sendMessage.
type botAPI struct {
	meStatus int
	polls    atomic.Int32

	mu   sync.Mutex
	sent []string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	switch method {
	case "getMe":
		if b.meStatus != 0 {
			w.WriteHeader(b.meStatus)
			_, _ = fmt.Fprintf(w, `{"ok":false,"error_code":%d,"description":%q}`, b.meStatus, http.StatusText(b.meStatus))
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"username":"vidmark_bot"}}`)
	case "getUpdates":
		if b.polls.Add(1) == 1 {
			_, _ = io.WriteString(w, `{"ok":true,"result":[{"update_id":10,"message":{"message_id":5,"from":{"id":42,"username":"bob"},"chat":{"id":42},"text":"/start"}}]}`)
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(50 * time.Millisecond):
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
	case "sendMessage":
		b.mu.Lock()
		b.sent = append(b.sent, string(body))
		b.mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":6,"chat":{"id":42}}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func (b *botAPI) messages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sent...)
}

func testConfig(t *testing.T, apiURL string) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.WorkDir = filepath.Join(cfg.DataDir, "work")
	cfg.Telegram.Token = testToken
	cfg.Telegram.APIURL = apiURL
	cfg.Telegram.PollTimeout = time.Second
	cfg.Records.Backend = "memory"
	cfg.Session.Backend = "memory"
	cfg.API.Listen = ""
	return cfg
}

func TestBuild_RunsEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)

	api := &botAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	app, err := Build(context.Background(), testConfig(t, srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return len(api.messages()) > 0 }, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, api.messages()[0], `"chat_id":"42"`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestBuild_InvalidToken(t *testing.T) {
	srv := httptest.NewServer(&botAPI{meStatus: http.StatusUnauthorized})
	defer srv.Close()

	start := time.Now()
	_, err := Build(context.Background(), testConfig(t, srv.URL))
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Less(t, time.Since(start), time.Second, "no retries for a rejected token")
}

func TestBuild_UnreachableAPIHonorsContext(t *testing.T) {
	srv := httptest.NewServer(&botAPI{meStatus: http.StatusBadGateway})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := Build(ctx, testConfig(t, srv.URL))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestBuild_WithOpsServer(t *testing.T) {
	srv := httptest.NewServer(&botAPI{})
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.API.Listen = "127.0.0.1:0"
	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, app.deps.API)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
