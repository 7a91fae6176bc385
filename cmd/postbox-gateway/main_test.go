// ABOUTME: Tests for postbox-gateway command helpers
// ABOUTME: Config path resolution, init output and the color log handler

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vida/postbox-gateway/internal/config"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv("POSTBOX_CONFIG", "/etc/postbox.yaml")
	assert.Equal(t, "/etc/postbox.yaml", getConfigPath())

	t.Setenv("POSTBOX_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "postbox", "gateway.yaml"), getConfigPath())
}

func TestGetDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, filepath.Join("/data", "postbox"), getDataPath())
}

func TestLocalAddr(t *testing.T) {
	tests := map[string]string{
		"0.0.0.0:8080":   "127.0.0.1:8080",
		"[::]:8080":      "[::1]:8080",
		":9000":          "127.0.0.1:9000",
		"localhost:8080": "localhost:8080",
	}
	for in, want := range tests {
		assert.Equal(t, want, localAddr(in), in)
	}
}

func TestRunInit_WritesValidConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	cfgPath := filepath.Join(dir, "gateway.yaml")

	// path, then accept every default
	input := cfgPath + "\n" + strings.Repeat("\n", 10)
	var out bytes.Buffer
	require.NoError(t, runInit(strings.NewReader(input), &out))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddr)
	assert.Equal(t, filepath.Join(dir, "data", "postbox", "postbox.db"), cfg.Database.Path)
	assert.GreaterOrEqual(t, len(cfg.Auth.JWTSecret), config.MinJWTSecretLength)
	assert.Equal(t, config.DefaultTokenTTL, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Tailscale.Enabled)
	assert.Contains(t, out.String(), "Config written to")
}

func TestRunInit_KeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, writeFile(cfgPath, "original"))

	var out bytes.Buffer
	require.NoError(t, runInit(strings.NewReader(cfgPath+"\nno\n"), &out))
	assert.Contains(t, out.String(), "Aborted.")

	data, err := readFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "original", data)
}

func TestRenderConfig_Tailscale(t *testing.T) {
	secret, err := generateSecret()
	require.NoError(t, err)

	content := renderConfig(initAnswers{
		HTTPAddr:         "localhost:8080",
		DBPath:           "/tmp/postbox.db",
		JWTSecret:        secret,
		TokenTTL:         "1h",
		NonceTTL:         "30s",
		TailscaleEnabled: true,
		TSHostname:       "postbox",
		TSHTTPS:          true,
		LogLevel:         "debug",
		LogFormat:        "json",
	})
	cfg, err := config.Parse([]byte(content))
	require.NoError(t, err)
	assert.True(t, cfg.Tailscale.Enabled)
	assert.True(t, cfg.Tailscale.HTTPS)
	assert.Equal(t, "postbox", cfg.Tailscale.Hostname)
	assert.NotContains(t, content, "auth_key")
	assert.NotContains(t, content, "http_addr")
	assert.Empty(t, cfg.Server.HTTPAddr)
}

func TestRunInit_TailscaleSkipsHTTPAddr(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	cfgPath := filepath.Join(dir, "gateway.yaml")

	// path, enable tailscale, then defaults for everything else
	input := cfgPath + "\nyes\n" + strings.Repeat("\n", 10)
	var out bytes.Buffer
	require.NoError(t, runInit(strings.NewReader(input), &out))

	assert.NotContains(t, out.String(), "HTTP address")
	assert.Contains(t, out.String(), "TS_AUTHKEY")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.True(t, cfg.Tailscale.Enabled)
	assert.Equal(t, "postbox", cfg.Tailscale.Hostname)
	assert.Empty(t, cfg.Server.HTTPAddr)
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "info"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "gateway").WithGroup("req").Info("served", "status", 200)
	logger.Error("boom", "error", "bad")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF served component=gateway req.status=200")
	assert.Contains(t, out, "ERR boom error=bad")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("skipped")
	logger.Warn("kept", "k", "v")
	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	return string(b), err
}
