// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/vidmark/internal/log"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("T_STR", "value")
	t.Setenv("T_EMPTY", "")
	t.Setenv("T_INT", " 42 ")
	t.Setenv("T_BAD_INT", "forty")
	t.Setenv("T_INT64", "5368709120")
	t.Setenv("T_DUR", "90s")
	t.Setenv("T_BAD_DUR", "soon")
	t.Setenv("T_BOOL", "YES")
	t.Setenv("T_BAD_BOOL", "maybe")
	t.Setenv("T_FLOAT", "0.25")

	assert.Equal(t, "value", ParseString("T_STR", "d"))
	assert.Equal(t, "d", ParseString("T_EMPTY", "d"))
	assert.Equal(t, "d", ParseString("T_UNSET", "d"))

	assert.Equal(t, 42, ParseInt("T_INT", 1))
	assert.Equal(t, 1, ParseInt("T_BAD_INT", 1))
	assert.Equal(t, int64(5368709120), ParseInt64("T_INT64", 0))

	assert.Equal(t, 90*time.Second, ParseDuration("T_DUR", time.Second))
	assert.Equal(t, time.Second, ParseDuration("T_BAD_DUR", time.Second))

	assert.True(t, ParseBool("T_BOOL", false))
	assert.True(t, ParseBool("T_BAD_BOOL", true))
	assert.False(t, ParseBool("T_UNSET", false))

	assert.Equal(t, 0.25, ParseFloat("T_FLOAT", 1))
}

func TestParseString_NeverLogsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{Level: "info"}) })

	t.Setenv("VIDMARK_TELEGRAM_TOKEN", "123:very-secret")
	t.Setenv("VIDMARK_REDIS_PASSWORD", "hunter2")
	t.Setenv("VIDMARK_WORKERS", "x-hunter2")

	assert.Equal(t, "123:very-secret", ParseString("VIDMARK_TELEGRAM_TOKEN", ""))
	assert.Equal(t, "hunter2", ParseString("VIDMARK_REDIS_PASSWORD", ""))
	ParseInt("VIDMARK_WORKERS", 1)

	out := buf.String()
	assert.NotContains(t, out, "very-secret")
	assert.NotContains(t, out, `"hunter2"`)
	assert.Contains(t, out, `"sensitive":true`)
}
