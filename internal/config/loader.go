// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by
// unknown keys. Use errors.Is instead of string matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every key the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath skips the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

func (l *Loader) envString(name, def string) string {
	return ParseString(l.key(name), def)
}

func (l *Loader) envInt(name string, def int) int {
	return ParseInt(l.key(name), def)
}

func (l *Loader) envInt64(name string, def int64) int64 {
	return ParseInt64(l.key(name), def)
}

func (l *Loader) envBool(name string, def bool) bool {
	return ParseBool(l.key(name), def)
}

func (l *Loader) envDuration(name string, def time.Duration) time.Duration {
	return ParseDuration(l.key(name), def)
}

func (l *Loader) envFloat(name string, def float64) float64 {
	return ParseFloat(l.key(name), def)
}

// Load builds the configuration: defaults, then the file (strict), then
// the environment, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.resolvePaths()
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a single YAML document over cfg. Unknown keys are errors.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- the path comes from the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DataDir = l.envString("DATA_DIR", cfg.DataDir)
	cfg.WorkDir = l.envString("WORK_DIR", cfg.WorkDir)
	cfg.Caption = l.envString("CAPTION", cfg.Caption)

	t := &cfg.Telegram
	t.Token = l.envString("TELEGRAM_TOKEN", t.Token)
	t.APIURL = l.envString("TELEGRAM_API_URL", t.APIURL)
	t.PollTimeout = l.envDuration("TELEGRAM_POLL_TIMEOUT", t.PollTimeout)
	t.DeveloperURL = l.envString("DEVELOPER_URL", t.DeveloperURL)
	t.UpdatesURL = l.envString("UPDATES_URL", t.UpdatesURL)

	f := &cfg.FFmpeg
	f.Bin = l.envString("FFMPEG_BIN", f.Bin)
	f.VideoCodec = l.envString("FFMPEG_VIDEO_CODEC", f.VideoCodec)
	f.Preset = l.envString("FFMPEG_PRESET", f.Preset)
	f.CRF = l.envInt("FFMPEG_CRF", f.CRF)
	f.Threads = l.envInt("FFMPEG_THREADS", f.Threads)
	f.KillGrace = l.envDuration("FFMPEG_KILL_GRACE", f.KillGrace)
	f.FontFile = l.envString("FONT_FILE", f.FontFile)

	lim := &cfg.Limits
	lim.Workers = l.envInt("WORKERS", lim.Workers)
	lim.QueueSize = l.envInt("QUEUE_SIZE", lim.QueueSize)
	lim.JobTimeout = l.envDuration("JOB_TIMEOUT", lim.JobTimeout)
	lim.TransferTimeout = l.envDuration("TRANSFER_TIMEOUT", lim.TransferTimeout)
	lim.ProgressInterval = l.envDuration("PROGRESS_INTERVAL", lim.ProgressInterval)
	lim.MaxSourceBytes = l.envInt64("MAX_SOURCE_BYTES", lim.MaxSourceBytes)
	lim.MaxTextRunes = l.envInt("MAX_TEXT_RUNES", lim.MaxTextRunes)
	lim.MaxConcurrentUpdates = l.envInt("MAX_CONCURRENT_UPDATES", lim.MaxConcurrentUpdates)

	s := &cfg.Session
	s.Backend = l.envString("SESSION_BACKEND", s.Backend)
	s.TTL = l.envDuration("SESSION_TTL", s.TTL)
	s.BadgerPath = l.envString("SESSION_BADGER_PATH", s.BadgerPath)
	s.Redis.Addr = l.envString("REDIS_ADDR", s.Redis.Addr)
	s.Redis.Password = l.envString("REDIS_PASSWORD", s.Redis.Password)
	s.Redis.DB = l.envInt("REDIS_DB", s.Redis.DB)

	cfg.Records.Backend = l.envString("RECORDS_BACKEND", cfg.Records.Backend)
	cfg.Records.Path = l.envString("RECORDS_PATH", cfg.Records.Path)

	cfg.API.Listen = l.envString("API_LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = l.envInt("API_RATE_LIMIT", cfg.API.RateLimit)

	tel := &cfg.Telemetry
	tel.Enabled = l.envBool("TRACING_ENABLED", tel.Enabled)
	tel.Exporter = l.envString("OTLP_EXPORTER", tel.Exporter)
	tel.Endpoint = l.envString("OTLP_ENDPOINT", tel.Endpoint)
	tel.ServiceName = l.envString("SERVICE_NAME", tel.ServiceName)
	tel.Environment = l.envString("ENVIRONMENT", tel.Environment)
	tel.SamplingRate = l.envFloat("TRACING_SAMPLE_RATE", tel.SamplingRate)
}

// UnknownEnvKeys lists VIDMARK_* variables the loader never read, which
// usually means a typo. Call it after Load.
func (l *Loader) UnknownEnvKeys() []string {
	var out []string
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(k, EnvPrefix) || k == EnvPrefix+"CONFIG" {
			continue
		}
		if _, ok := l.ConsumedEnvKeys[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
