// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package telegram adapts the Telegram Bot API to the transport boundary.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/vidmark/internal/metrics"
	"github.com/ManuGH/vidmark/internal/platform/httpx"
)

const (
	DefaultAPIURL      = "https://api.telegram.org"
	DefaultPollTimeout = 30 * time.Second

	// headroom on top of the long poll before the transport gives up
	pollHeadroom = 15 * time.Second
)

// ErrNoToken is returned by New without a bot token.
var ErrNoToken = errors.New("telegram: bot token is required")

// APIError is a Bot API response with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Config configures a Client.
type Config struct {
	Token       string
	APIURL      string
	PollTimeout time.Duration
	HTTPClient  *http.Client
}

// Client is a Bot API client. It implements transport.Transport and
// transport.Source.
type Client struct {
	token       string
	apiURL      string
	pollTimeout time.Duration
	http        *http.Client
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrNoToken
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("telegram: api url: %w", err)
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = DefaultPollTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpx.NewClient(httpx.Options{ResponseHeaderTimeout: poll + pollHeadroom})
	}
	return &Client{token: cfg.Token, apiURL: apiURL, pollTimeout: poll, http: hc}, nil
}

func (c *Client) methodURL(method string) string {
	return c.apiURL + "/bot" + c.token + "/" + method
}

func (c *Client) fileURL(path string) string {
	return c.apiURL + "/file/bot" + c.token + "/" + strings.TrimLeft(path, "/")
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// call posts params as JSON and decodes the result into out (may be nil).
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("telegram %s: encode: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, redact(err))
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordTelegramRequest(method, "error")
		return fmt.Errorf("telegram %s: %w", method, redact(err))
	}
	defer func() { _ = resp.Body.Close() }()

	var r apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&r); err != nil {
		metrics.RecordTelegramRequest(method, "error")
		return fmt.Errorf("telegram %s: decode (http %d): %w", method, resp.StatusCode, err)
	}
	if !r.OK {
		metrics.RecordTelegramRequest(method, "api_error")
		apiErr := &APIError{Method: method, Code: r.ErrorCode, Description: r.Description}
		if r.Parameters != nil && r.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(r.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}
	metrics.RecordTelegramRequest(method, "ok")
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// Me returns the bot's own username. It doubles as a token check.
func (c *Client) Me(ctx context.Context) (string, error) {
	var u user
	if err := c.call(ctx, "getMe", struct{}{}, &u); err != nil {
		return "", err
	}
	return u.Username, nil
}

// redact drops the request URL, which carries the bot token.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
