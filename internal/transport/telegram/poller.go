// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/transport"
)

type getUpdatesParams struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// Updates long-polls getUpdates until ctx is cancelled, then closes the
// channel. Failed polls are retried with exponential backoff, or after the
// server's retry_after when it sends one.
func (c *Client) Updates(ctx context.Context) <-chan transport.Update {
	out := make(chan transport.Update)
	go func() {
		defer close(out)
		c.poll(ctx, out)
	}()
	return out
}

func newPollBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0 // never give up
	b.Reset()
	return b
}

func (c *Client) poll(ctx context.Context, out chan<- transport.Update) {
	logger := log.WithComponent("telegram")
	retry := newPollBackoff()
	var offset int64

	for ctx.Err() == nil {
		var batch []update
		err := c.call(ctx, "getUpdates", getUpdatesParams{
			Offset:         offset,
			Timeout:        int(c.pollTimeout / time.Second),
			AllowedUpdates: []string{"message", "callback_query"},
		}, &batch)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := retry.NextBackOff()
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}
			logger.Warn().Err(err).Dur("retry_in", wait).Str(log.FieldEvent, "telegram.poll_failed").Msg("getUpdates failed")
			if !sleep(ctx, wait) {
				return
			}
			continue
		}
		retry.Reset()

		for _, raw := range batch {
			if raw.UpdateID >= offset {
				offset = raw.UpdateID + 1
			}
			upd, ok := toUpdate(raw)
			if !ok {
				continue
			}
			select {
			case out <- upd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
