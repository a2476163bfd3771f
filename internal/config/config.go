// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for vidmark.
package config

import (
	"path/filepath"
	"time"
)

// EnvPrefix prefixes every environment key.
const EnvPrefix = "VIDMARK_"

// AppConfig is the effective runtime configuration. The same struct is the
// YAML file schema; absent keys keep their defaults.
type AppConfig struct {
	Version  string `yaml:"-"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
	// WorkDir holds job temp files. Defaults to <data_dir>/work.
	WorkDir string `yaml:"work_dir"`
	Caption string `yaml:"caption"`

	Telegram  TelegramConfig  `yaml:"telegram"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Limits    LimitsConfig    `yaml:"limits"`
	Session   SessionConfig   `yaml:"session"`
	Records   RecordsConfig   `yaml:"records"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TelegramConfig configures the Bot API transport.
type TelegramConfig struct {
	Token        string        `yaml:"token"`
	APIURL       string        `yaml:"api_url"`
	PollTimeout  time.Duration `yaml:"poll_timeout"`
	DeveloperURL string        `yaml:"developer_url"`
	UpdatesURL   string        `yaml:"updates_url"`
}

// FFmpegConfig configures the transcoder.
type FFmpegConfig struct {
	Bin        string        `yaml:"bin"`
	VideoCodec string        `yaml:"video_codec"`
	Preset     string        `yaml:"preset"`
	CRF        int           `yaml:"crf"`
	Threads    int           `yaml:"threads"`
	KillGrace  time.Duration `yaml:"kill_grace"`
	FontFile   string        `yaml:"font_file"`
}

// LimitsConfig bounds concurrency, time and input size.
type LimitsConfig struct {
	Workers              int           `yaml:"workers"`
	QueueSize            int           `yaml:"queue_size"`
	JobTimeout           time.Duration `yaml:"job_timeout"`
	TransferTimeout      time.Duration `yaml:"transfer_timeout"`
	ProgressInterval     time.Duration `yaml:"progress_interval"`
	MaxSourceBytes       int64         `yaml:"max_source_bytes"`
	MaxTextRunes         int           `yaml:"max_text_runes"`
	MaxConcurrentUpdates int           `yaml:"max_concurrent_updates"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	Backend    string        `yaml:"backend"` // memory, redis, badger
	TTL        time.Duration `yaml:"ttl"`
	BadgerPath string        `yaml:"badger_path"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig addresses the redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RecordsConfig selects the user/job record repository.
type RecordsConfig struct {
	Backend string `yaml:"backend"` // sqlite, memory
	Path    string `yaml:"path"`
}

// APIConfig configures the ops HTTP server. An empty listen address
// disables it.
type APIConfig struct {
	Listen string `yaml:"listen"`
	// RateLimit is requests per minute per client IP on /api routes.
	RateLimit int `yaml:"rate_limit"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc, http
	Endpoint     string  `yaml:"endpoint"`
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		DataDir:  "/var/lib/vidmark",
		Caption:  "Watermarked with ❤️ by Video Watermark Bot",
		Telegram: TelegramConfig{
			APIURL:      "https://api.telegram.org",
			PollTimeout: 30 * time.Second,
		},
		FFmpeg: FFmpegConfig{
			Bin:        "ffmpeg",
			VideoCodec: "libx264",
			Preset:     "veryfast",
			KillGrace:  2 * time.Second,
		},
		Limits: LimitsConfig{
			Workers:              2,
			QueueSize:            8,
			JobTimeout:           30 * time.Minute,
			TransferTimeout:      5 * time.Minute,
			ProgressInterval:     time.Second,
			MaxSourceBytes:       0,
			MaxTextRunes:         200,
			MaxConcurrentUpdates: 32,
		},
		Session: SessionConfig{
			Backend: "memory",
		},
		Records: RecordsConfig{
			Backend: "sqlite",
		},
		API: APIConfig{
			Listen:    ":8080",
			RateLimit: 60,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			ServiceName:  "vidmark",
			SamplingRate: 1.0,
		},
	}
}

// resolvePaths fills paths derived from DataDir.
func (c *AppConfig) resolvePaths() {
	if abs, err := filepath.Abs(c.DataDir); err == nil {
		c.DataDir = abs
	}
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(c.DataDir, "work")
	}
	if c.Session.Backend == "badger" && c.Session.BadgerPath == "" {
		c.Session.BadgerPath = filepath.Join(c.DataDir, "sessions")
	}
	if c.Records.Backend == "sqlite" && c.Records.Path == "" {
		c.Records.Path = filepath.Join(c.DataDir, "vidmark.db")
	}
}

// Redacted returns a copy safe to log.
func (c AppConfig) Redacted() AppConfig {
	if c.Telegram.Token != "" {
		c.Telegram.Token = "***"
	}
	if c.Session.Redis.Password != "" {
		c.Session.Redis.Password = "***"
	}
	return c
}
