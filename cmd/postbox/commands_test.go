// ABOUTME: End-to-end tests for the postbox CLI
// ABOUTME: Runs keygen, register, login and inbox commands against an in-process gateway

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vida/postbox-gateway/internal/client"
	"github.com/vida/postbox-gateway/internal/config"
	"github.com/vida/postbox-gateway/internal/gateway"
	"github.com/vida/postbox-gateway/internal/store"
)

func startGateway(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "unused.db")},
		Auth: config.AuthConfig{
			JWTSecret:     "cli-test-secret-that-is-32-bytes",
			Issuer:        "postbox-test",
			TokenTTL:      15 * time.Minute,
			NonceTTL:      time.Minute,
			NonceCapacity: 100,
		},
	}
	gw, err := gateway.NewWithStore(cfg, store.NewMockStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = gw.Shutdown(context.Background())
	})
	return srv.URL
}

// run executes one CLI invocation against profile and returns its output.
func run(t *testing.T, profile string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--profile", profile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_FullFlow(t *testing.T) {
	url := startGateway(t)
	dir := t.TempDir()
	alice := filepath.Join(dir, "alice", "profile.toml")
	bob := filepath.Join(dir, "bob", "profile.toml")

	out, err := run(t, alice, "--server", url, "keygen", "--type", "rsa")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated RSA key")

	_, err = run(t, alice, "keygen")
	assert.ErrorContains(t, err, "already exists")

	out, err = run(t, alice, "register", "--name", "alice", "--bio", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered alice as user 1")

	_, err = run(t, bob, "--server", url, "keygen")
	require.NoError(t, err)
	_, err = run(t, bob, "register", "--name", "bob")
	require.NoError(t, err)

	out, err = run(t, alice, "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as user 1")

	p, err := client.LoadProfile(alice)
	require.NoError(t, err)
	assert.Equal(t, url, p.Server)
	assert.True(t, p.TokenValid(time.Now()))

	out, err = run(t, alice, "users", "--name", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "2  bob (EC)")

	out, err = run(t, alice, "users", "--name", "nobody")
	require.NoError(t, err)
	assert.Contains(t, out, `No users named "nobody".`)

	out, err = run(t, alice, "send", "--to", "2", "hello bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Sent message 1 to user 2")

	// bob never ran login; the command logs in on demand
	out, err = run(t, bob, "inbox")
	require.NoError(t, err)
	assert.Contains(t, out, "from 1: hello bob")

	out, err = run(t, bob, "whoami")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "bob (user 2, EC)"))

	_, err = run(t, alice, "delete", "1")
	assert.ErrorContains(t, err, "message not found")

	out, err = run(t, bob, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted message 1")

	out, err = run(t, bob, "inbox")
	require.NoError(t, err)
	assert.Contains(t, out, "Inbox is empty.")
}

func TestCLI_Errors(t *testing.T) {
	url := startGateway(t)
	profile := filepath.Join(t.TempDir(), "profile.toml")

	_, err := run(t, profile, "--server", url, "register", "--name", "x")
	assert.ErrorContains(t, err, "postbox keygen")

	_, err = run(t, profile, "login")
	assert.ErrorContains(t, err, "postbox register")

	_, err = run(t, profile, "keygen", "--type", "dsa")
	assert.ErrorIs(t, err, client.ErrUnsupportedKey)

	_, err = run(t, profile, "delete", "abc")
	assert.ErrorContains(t, err, "invalid message id")

	_, err = run(t, profile, "send", "--to", "1")
	assert.ErrorContains(t, err, "message body is empty")
}

func TestCLI_InboxPaging(t *testing.T) {
	url := startGateway(t)
	dir := t.TempDir()
	alice := filepath.Join(dir, "alice", "profile.toml")
	bob := filepath.Join(dir, "bob", "profile.toml")

	for _, p := range []struct{ profile, name string }{{alice, "alice"}, {bob, "bob"}} {
		_, err := run(t, p.profile, "--server", url, "keygen")
		require.NoError(t, err)
		_, err = run(t, p.profile, "register", "--name", p.name)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := run(t, alice, "send", "--to", "2", fmt.Sprintf("note %d", i))
		require.NoError(t, err)
	}

	out, err := run(t, bob, "inbox", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "note 1")
	assert.NotContains(t, out, "note 2")
	assert.Contains(t, out, "more: postbox inbox --after 2")

	out, err = run(t, bob, "inbox", "--after", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "note 2")
	assert.NotContains(t, out, "note 0")

	out, err = run(t, bob, "inbox")
	require.NoError(t, err)
	assert.Contains(t, out, "note 0")
	assert.Contains(t, out, "note 2")
	assert.NotContains(t, out, "more:")
}

func TestCLI_Health(t *testing.T) {
	url := startGateway(t)
	profile := filepath.Join(t.TempDir(), "profile.toml")

	out, err := run(t, profile, "--server", url, "health")
	require.NoError(t, err)
	assert.Contains(t, out, url+" is ready")

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	_, err = run(t, profile, "--server", down.URL, "health")
	assert.ErrorContains(t, err, "database unavailable")
}
