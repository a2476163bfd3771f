package httpx

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transportOf(t *testing.T, c *http.Client) *http.Transport {
	t.Helper()
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok, "transport type = %T", c.Transport)
	return tr
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Options{})
	assert.Zero(t, client.Timeout, "no overall timeout unless asked")

	tr := transportOf(t, client)
	assert.Equal(t, defaultMaxIdleConns, tr.MaxIdleConns)
	assert.Equal(t, defaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	assert.Equal(t, defaultIdleConnTimeout, tr.IdleConnTimeout)
	assert.Equal(t, defaultDialTimeout, tr.TLSHandshakeTimeout)
	assert.Equal(t, defaultResponseHeaderTimeout, tr.ResponseHeaderTimeout)
}

func TestNewClient_LongPollHeaderTimeout(t *testing.T) {
	tr := transportOf(t, NewClient(Options{ResponseHeaderTimeout: 40 * time.Second}))
	assert.Equal(t, 40*time.Second, tr.ResponseHeaderTimeout)
}

func TestNewClient_ShortTimeoutCapsTheRest(t *testing.T) {
	want := 1500 * time.Millisecond
	client := NewClient(Options{Timeout: want})
	tr := transportOf(t, client)
	assert.Equal(t, want, client.Timeout)
	assert.Equal(t, want, tr.TLSHandshakeTimeout)
	assert.Equal(t, want, tr.ResponseHeaderTimeout)
}
