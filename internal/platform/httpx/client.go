package httpx

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultDialTimeout           = 5 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 8
)

// Options tune a client. Zero values pick the defaults above.
//
// Timeout bounds a whole request including the body; leave it at zero for
// streaming transfers and bound them with the request context instead.
// ResponseHeaderTimeout must exceed any server-side long poll.
type Options struct {
	Timeout               time.Duration
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
}

// NewClient returns a hardened HTTP client for outbound API calls.
func NewClient(opts Options) *http.Client {
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	if opts.Timeout > 0 && dialTimeout > opts.Timeout {
		dialTimeout = opts.Timeout
	}

	responseHeaderTimeout := opts.ResponseHeaderTimeout
	if responseHeaderTimeout <= 0 {
		responseHeaderTimeout = defaultResponseHeaderTimeout
	}
	if opts.Timeout > 0 && responseHeaderTimeout > opts.Timeout {
		responseHeaderTimeout = opts.Timeout
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          defaultMaxIdleConns,
			MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   dialTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		},
	}
}
