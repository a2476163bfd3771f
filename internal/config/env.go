// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vidmark/internal/log"
)

func sensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "password") || strings.Contains(k, "secret")
}

// lookup returns the raw value when key is set and non-empty.
func lookup(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	if v == "" {
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value (environment variable is empty)")
		return "", false
	}
	return v, true
}

func logEnv(logger zerolog.Logger, key, value string) {
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if sensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", value)
	}
	ev.Msg("using environment variable")
}

func logInvalid(logger zerolog.Logger, key, value, kind string) {
	if sensitive(key) {
		value = "***"
	}
	logger.Warn().Str("key", key).Str("value", value).Msgf("invalid %s in environment variable, using default", kind)
}

// ParseString reads a string from the environment or returns defaultValue.
// Values of token and password keys are never logged.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	logEnv(logger, key, v)
	return v
}

// ParseInt reads an integer, falling back to defaultValue on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logInvalid(logger, key, v, "integer")
		return defaultValue
	}
	logEnv(logger, key, v)
	return i
}

// ParseInt64 is ParseInt for byte counts.
func ParseInt64(key string, defaultValue int64) int64 {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		logInvalid(logger, key, v, "integer")
		return defaultValue
	}
	logEnv(logger, key, v)
	return i
}

// ParseDuration reads a Go duration ("5s", "30m").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logInvalid(logger, key, v, "duration")
		return defaultValue
	}
	logEnv(logger, key, v)
	return d
}

// ParseBool accepts true/false, 1/0 and yes/no, case-insensitively.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		logEnv(logger, key, v)
		return true
	case "false", "0", "no":
		logEnv(logger, key, v)
		return false
	default:
		logInvalid(logger, key, v, "boolean")
		return defaultValue
	}
}

// ParseFloat reads a float64.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logInvalid(logger, key, v, "float")
		return defaultValue
	}
	logEnv(logger, key, v)
	return f
}
