// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig(t *testing.T) string {
	return writeConfig(t, "data_dir: "+t.TempDir()+"\ntelegram:\n  token: \"123:secret\"\nrecords:\n  backend: memory\n")
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("VIDMARK_CONFIG", "/etc/vidmark/config.yaml")
	assert.Equal(t, "/tmp/x.yaml", resolveConfigPath(" /tmp/x.yaml "))
	assert.Equal(t, "/etc/vidmark/config.yaml", resolveConfigPath(""))

	t.Setenv("VIDMARK_CONFIG", "")
	assert.Empty(t, resolveConfigPath(""))
}

func TestConfigValidate(t *testing.T) {
	var out, errOut bytes.Buffer
	path := validConfig(t)
	require.Equal(t, 0, configCLI([]string{"validate", "-f", path}, &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "is valid")

	out.Reset()
	errOut.Reset()
	bad := writeConfig(t, "telegram:\n  tokn: x\n")
	assert.Equal(t, 1, configCLI([]string{"validate", "--file", bad}, &out, &errOut))
	assert.Contains(t, errOut.String(), "Configuration error")
}

func TestConfigDump_RedactsSecrets(t *testing.T) {
	path := validConfig(t)
	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			var out, errOut bytes.Buffer
			require.Equal(t, 0, configCLI([]string{"dump", "-f", path, "--format", format}, &out, &errOut), errOut.String())
			assert.NotContains(t, out.String(), "123:secret")
			assert.Contains(t, out.String(), "***")
		})
	}

	var out, errOut bytes.Buffer
	assert.Equal(t, 2, configCLI([]string{"dump", "-f", path, "--format", "toml"}, &out, &errOut))
}

func TestConfigCLI_Usage(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 0, configCLI(nil, &out, &errOut))
	assert.Contains(t, errOut.String(), "Usage:")
	assert.Equal(t, 2, configCLI([]string{"frobnicate"}, &out, &errOut))
}

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var out, errOut bytes.Buffer
	assert.Equal(t, 0, healthcheck([]string{"-mode", "live", "-addr", srv.URL}, &out, &errOut))
	assert.Contains(t, out.String(), "successful (live)")

	assert.Equal(t, 1, healthcheck([]string{"-addr", srv.URL + "/"}, &out, &errOut))
	assert.Contains(t, errOut.String(), "503")
}
