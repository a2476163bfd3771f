// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/ManuGH/vidmark/internal/api"
	"github.com/ManuGH/vidmark/internal/config"
	"github.com/ManuGH/vidmark/internal/conversation"
	"github.com/ManuGH/vidmark/internal/domain/session/store"
	"github.com/ManuGH/vidmark/internal/filtergraph"
	"github.com/ManuGH/vidmark/internal/health"
	"github.com/ManuGH/vidmark/internal/job"
	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/platform/httpx"
	"github.com/ManuGH/vidmark/internal/records"
	"github.com/ManuGH/vidmark/internal/status"
	"github.com/ManuGH/vidmark/internal/telemetry"
	"github.com/ManuGH/vidmark/internal/transcoder"
	"github.com/ManuGH/vidmark/internal/transfer"
	"github.com/ManuGH/vidmark/internal/transport/telegram"
)

// ErrInvalidToken is returned when the Bot API rejects the configured token.
var ErrInvalidToken = errors.New("telegram rejected the bot token")

// maxTokenCheck bounds how long startup waits for the Bot API.
var maxTokenCheck = 2 * time.Minute

// Build wires every component from cfg and returns an App ready to Run.
// Whatever was opened before a failure is closed again.
func Build(ctx context.Context, cfg config.AppConfig) (app *App, err error) {
	logger := log.WithComponent("bootstrap")

	var closers []namedHook
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].hook(context.Background())
		}
	}()

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	closers = append(closers, namedHook{"telemetry", tel.Shutdown})

	httpClient := httpx.NewClient(httpx.Options{
		// long polls hold the response for PollTimeout
		ResponseHeaderTimeout: cfg.Telegram.PollTimeout + 15*time.Second,
	})
	closers = append(closers, namedHook{"telegram-http", func(context.Context) error {
		httpClient.CloseIdleConnections()
		return nil
	}})

	bot, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		APIURL:      cfg.Telegram.APIURL,
		PollTimeout: cfg.Telegram.PollTimeout,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, err
	}
	username, err := checkToken(ctx, bot)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("bot", username).Str(log.FieldEvent, "telegram.ready").Msg("Bot API reachable")

	sessions, err := store.Open(store.Options{
		Backend: cfg.Session.Backend,
		TTL:     cfg.Session.TTL,
		Redis: store.RedisConfig{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		},
		BadgerPath: cfg.Session.BadgerPath,
	})
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	closers = append(closers, namedHook{"sessions", func(context.Context) error { return sessions.Close() }})

	repo, err := records.Open(ctx, records.Options{Backend: cfg.Records.Backend, Path: cfg.Records.Path})
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	closers = append(closers, namedHook{"records", func(context.Context) error { return repo.Close() }})

	if err := os.MkdirAll(cfg.WorkDir, 0o750); err != nil {
		return nil, fmt.Errorf("work dir: %w", err)
	}

	transfers := transfer.NewManager(bot, transfer.Options{
		Timeout:          cfg.Limits.TransferTimeout,
		ProgressInterval: cfg.Limits.ProgressInterval,
		MaxDownloadBytes: cfg.Limits.MaxSourceBytes,
	})
	ffmpeg := transcoder.NewFFmpeg(cfg.FFmpeg.Bin, filtergraph.ArgsOptions{
		VideoCodec: cfg.FFmpeg.VideoCodec,
		Preset:     cfg.FFmpeg.Preset,
		CRF:        cfg.FFmpeg.CRF,
		Threads:    cfg.FFmpeg.Threads,
	}, cfg.FFmpeg.KillGrace)

	executor := job.NewExecutor(job.Deps{
		Transport:  bot,
		Transfer:   transfers,
		Transcoder: ffmpeg,
		Status:     status.NewReporter(bot),
		Records:    repo,
		Tracer:     telemetry.Tracer("vidmark.job"),
	}, job.Options{
		Timeout:  cfg.Limits.JobTimeout,
		FontFile: cfg.FFmpeg.FontFile,
		Caption:  cfg.Caption,
	})
	pool := job.NewPool(executor, cfg.Limits.Workers, cfg.Limits.QueueSize)

	handler := conversation.NewHandler(conversation.Deps{
		Transport: bot,
		Store:     sessions,
		Jobs:      pool,
		Media:     transfers,
		Records:   repo,
	}, conversation.Options{
		WorkDir:        cfg.WorkDir,
		MaxSourceBytes: cfg.Limits.MaxSourceBytes,
		MaxTextRunes:   cfg.Limits.MaxTextRunes,
		Links: conversation.Links{
			Developer: cfg.Telegram.DeveloperURL,
			Updates:   cfg.Telegram.UpdatesURL,
		},
	})
	executor.OnFinished = handler.JobFinished

	deps := Deps{Source: bot, Handler: handler, Pool: pool}
	if cfg.API.Listen != "" {
		hm := health.NewManager(cfg.Version)
		hm.RegisterChecker(health.NewPingChecker("sessions", sessions.Ping, 0))
		hm.RegisterChecker(health.NewPingChecker("records", repo.Ping, 0))
		hm.RegisterChecker(health.NewQueueChecker(pool, cfg.Limits.Workers, cfg.Limits.QueueSize))
		hm.RegisterChecker(health.NewFileChecker("font_file", cfg.FFmpeg.FontFile))

		tracing := ""
		if cfg.Telemetry.Enabled {
			tracing = cfg.Telemetry.ServiceName
		}
		deps.API = api.NewServer(api.Config{
			Listen:         cfg.API.Listen,
			RateLimit:      cfg.API.RateLimit,
			TracingService: tracing,
		}, hm, repo)
	}

	app, err = NewApp(deps, Options{MaxConcurrentUpdates: cfg.Limits.MaxConcurrentUpdates})
	if err != nil {
		// the pool is running already
		_ = pool.Shutdown(context.Background())
		return nil, err
	}
	for _, c := range closers {
		app.RegisterShutdownHook(c.name, c.hook)
	}

	logger.Info().
		Str("session_backend", cfg.Session.Backend).
		Str("records_backend", cfg.Records.Backend).
		Int("workers", cfg.Limits.Workers).
		Int("queue_size", cfg.Limits.QueueSize).
		Str("api", cfg.API.Listen).
		Msg("Components wired")
	return app, nil
}

// checkToken calls getMe, retrying transient failures with exponential
// backoff. A rejected token fails at once.
func checkToken(ctx context.Context, bot *telegram.Client) (string, error) {
	logger := log.WithComponent("bootstrap")

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = maxTokenCheck
	b.Reset()

	var (
		username string
		fatal    error
	)
	op := func() error {
		name, err := bot.Me(ctx)
		if err == nil {
			username = name
			return nil
		}
		var apiErr *telegram.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusNotFound) {
			fatal = fmt.Errorf("%w: %v", ErrInvalidToken, err)
			return nil
		}
		logger.Warn().Err(err).Str(log.FieldEvent, "telegram.unreachable").Msg("getMe failed, retrying")
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("telegram getMe: %w", err)
	}
	if fatal != nil {
		return "", fatal
	}
	return username, nil
}
