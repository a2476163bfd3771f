// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon owns the bot's runtime lifecycle: update dispatch, the ops
// server, job pool draining and ordered cleanup.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/metrics"
	"github.com/ManuGH/vidmark/internal/transport"
)

const (
	// DefaultMaxConcurrentUpdates bounds update goroutines.
	DefaultMaxConcurrentUpdates = 32
	// DefaultShutdownTimeout bounds draining the job pool and each hook.
	DefaultShutdownTimeout = 30 * time.Second
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// namedHook represents a shutdown hook with a name for logging
type namedHook struct {
	name string
	hook ShutdownHook
}

// Options tune an App.
type Options struct {
	MaxConcurrentUpdates int
	ShutdownTimeout      time.Duration
}

// App runs the bot until its context ends.
type App struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	started bool
	hooks   []namedHook
}

// NewApp validates deps and returns an App.
func NewApp(deps Deps, opts Options) (*App, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if opts.MaxConcurrentUpdates <= 0 {
		opts.MaxConcurrentUpdates = DefaultMaxConcurrentUpdates
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &App{
		deps:   deps,
		opts:   opts,
		logger: log.WithComponent("daemon"),
	}, nil
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
// Hooks are executed in reverse registration order (LIFO), after the job pool
// has drained.
func (a *App) RegisterShutdownHook(name string, hook ShutdownHook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, namedHook{name: name, hook: hook})
	a.logger.Debug().Str("hook", name).Msg("Registered shutdown hook")
}

// Run dispatches updates and serves the ops API until ctx is cancelled or
// one of them fails. It then drains the job pool and runs the shutdown hooks.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.mu.Unlock()

	a.logger.Info().
		Int("max_concurrent_updates", a.opts.MaxConcurrentUpdates).
		Dur("shutdown_timeout", a.opts.ShutdownTimeout).
		Str(log.FieldEvent, "daemon.start").
		Msg("Starting bot")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.dispatch(gctx) })
	if a.deps.API != nil {
		g.Go(func() error {
			if err := a.deps.API.ListenAndServe(gctx, a.opts.ShutdownTimeout); err != nil {
				return fmt.Errorf("ops server: %w", err)
			}
			return nil
		})
	}

	runErr := g.Wait()
	if runErr != nil {
		a.logger.Error().Err(runErr).Str(log.FieldEvent, "daemon.failed").Msg("Runtime error, initiating shutdown")
	} else {
		a.logger.Info().Str(log.FieldEvent, "daemon.stopping").Msg("Shutdown signal received")
	}

	// Detached, bounded context: the caller's ctx is already done here.
	shutdownErr := a.shutdown(context.WithoutCancel(ctx))
	if runErr != nil || shutdownErr != nil {
		return errors.Join(runErr, shutdownErr)
	}
	a.logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("Bot stopped cleanly")
	return nil
}

// dispatch hands every update to the handler on its own goroutine, at most
// MaxConcurrentUpdates at a time. It returns after in-flight handlers finish.
func (a *App) dispatch(ctx context.Context) error {
	updates := a.deps.Source.Updates(ctx)
	sem := make(chan struct{}, a.opts.MaxConcurrentUpdates)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var (
			upd transport.Update
			ok  bool
		)
		select {
		case <-ctx.Done():
			return nil
		case upd, ok = <-updates:
		}
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return ErrSourceClosed
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}
		wg.Add(1)
		metrics.UpdatesInFlight.Inc()
		go func(upd transport.Update) {
			defer func() {
				metrics.UpdatesInFlight.Dec()
				<-sem
				wg.Done()
			}()
			a.deps.Handler.Handle(ctx, upd)
		}(upd)
	}
}

// shutdown drains the pool first so finishing jobs can still reach the
// session store, then runs the hooks.
func (a *App) shutdown(ctx context.Context) error {
	var errs []error

	poolCtx, cancel := context.WithTimeout(ctx, a.opts.ShutdownTimeout)
	start := time.Now()
	if err := a.deps.Pool.Shutdown(poolCtx); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldEvent, "pool.drain_timeout").
			Dur("duration", time.Since(start)).
			Msg("job pool did not drain in time; running jobs were canceled")
		errs = append(errs, fmt.Errorf("job pool shutdown: %w", err))
	}
	cancel()

	a.mu.Lock()
	hooks := append([]namedHook(nil), a.hooks...)
	a.mu.Unlock()

	a.logger.Debug().Int("hooks", len(hooks)).Msg("Executing shutdown hooks")
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		hookCtx, cancel := context.WithTimeout(ctx, a.opts.ShutdownTimeout)
		hookStart := time.Now()
		err := hook.hook(hookCtx)
		cancel()
		if err != nil {
			a.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		a.logger.Debug().
			Str("hook", hook.name).
			Dur("duration", time.Since(hookStart)).
			Msg("Shutdown hook completed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}
