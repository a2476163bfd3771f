// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"fmt"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string // memory (default), redis, badger
	TTL        time.Duration
	Redis      RedisConfig
	BadgerPath string
}

// Open creates a Store based on the backend configuration.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		cfg := opts.Redis
		cfg.TTL = opts.TTL
		return NewRedisStore(cfg)
	case "badger":
		return OpenBadgerStore(opts.BadgerPath, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown session store backend: %s (supported: memory, redis, badger)", opts.Backend)
	}
}
