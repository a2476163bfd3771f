// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vidmark/internal/validate"
)

// Validate reports every problem in cfg at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		v.AddError("log_level", err.Error(), cfg.LogLevel)
	}
	v.Directory("data_dir", cfg.DataDir, false)
	v.Directory("work_dir", cfg.WorkDir, false)

	v.NotEmpty("telegram.token", cfg.Telegram.Token)
	v.URL("telegram.api_url", cfg.Telegram.APIURL, []string{"http", "https"})
	v.DurationMin("telegram.poll_timeout", cfg.Telegram.PollTimeout, time.Second)
	if cfg.Telegram.DeveloperURL != "" {
		v.URL("telegram.developer_url", cfg.Telegram.DeveloperURL, []string{"https", "http", "tg"})
	}
	if cfg.Telegram.UpdatesURL != "" {
		v.URL("telegram.updates_url", cfg.Telegram.UpdatesURL, []string{"https", "http", "tg"})
	}

	v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)
	v.NotEmpty("ffmpeg.video_codec", cfg.FFmpeg.VideoCodec)
	v.Range("ffmpeg.crf", cfg.FFmpeg.CRF, 0, 51)
	v.Range("ffmpeg.threads", cfg.FFmpeg.Threads, 0, 64)
	v.DurationMin("ffmpeg.kill_grace", cfg.FFmpeg.KillGrace, 100*time.Millisecond)
	v.File("ffmpeg.font_file", cfg.FFmpeg.FontFile)

	lim := cfg.Limits
	v.Range("limits.workers", lim.Workers, 1, 64)
	v.Range("limits.queue_size", lim.QueueSize, 0, 10000)
	v.DurationMin("limits.job_timeout", lim.JobTimeout, time.Minute)
	v.DurationMin("limits.transfer_timeout", lim.TransferTimeout, 5*time.Second)
	v.DurationMin("limits.progress_interval", lim.ProgressInterval, 0)
	v.NonNegative("limits.max_source_bytes", lim.MaxSourceBytes)
	v.Range("limits.max_text_runes", lim.MaxTextRunes, 1, 4096)
	v.Range("limits.max_concurrent_updates", lim.MaxConcurrentUpdates, 1, 10000)
	if lim.JobTimeout > 0 && lim.TransferTimeout > lim.JobTimeout {
		v.AddError("limits.transfer_timeout", "must not exceed limits.job_timeout", lim.TransferTimeout)
	}

	v.OneOf("session.backend", cfg.Session.Backend, []string{"memory", "redis", "badger"})
	if cfg.Session.Backend == "redis" {
		v.NotEmpty("session.redis.addr", cfg.Session.Redis.Addr)
	}
	v.DurationMin("session.ttl", cfg.Session.TTL, 0)

	v.OneOf("records.backend", cfg.Records.Backend, []string{"sqlite", "memory"})

	if cfg.API.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.API.Listen); err != nil {
			v.AddError("api.listen", err.Error(), cfg.API.Listen)
		}
		v.Range("api.rate_limit", cfg.API.RateLimit, 1, 100000)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
