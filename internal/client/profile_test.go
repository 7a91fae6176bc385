// ABOUTME: Tests for the TOML CLI profile
// ABOUTME: Covers defaults, round trips, file mode and token expiry

package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile_Missing(t *testing.T) {
	dir := t.TempDir()
	p, err := LoadProfile(filepath.Join(dir, "profile.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServer, p.Server)
	assert.Equal(t, filepath.Join(dir, "private_key.pem"), p.PrivateKey)
	assert.Equal(t, filepath.Join(dir, "public_key.pem"), p.PublicKey)
	assert.Zero(t, p.UserID)
}

func TestProfile_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profile.toml")
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	p := NewProfile(filepath.Dir(path))
	p.Server = "https://postbox.example.ts.net"
	p.UserID = 42
	p.SetToken(&Token{AccessToken: "tok", ExpiresAt: expires})
	require.NoError(t, p.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, p.Server, loaded.Server)
	assert.Equal(t, int64(42), loaded.UserID)
	assert.Equal(t, "tok", loaded.Token)
	assert.True(t, expires.Equal(loaded.TokenExpiresAt))
}

func TestLoadProfile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte("user_id = \"not a number\""), 0600))
	_, err := LoadProfile(path)
	assert.Error(t, err)
}

func TestProfile_TokenValid(t *testing.T) {
	now := time.Now()
	p := &Profile{}
	assert.False(t, p.TokenValid(now))

	p.SetToken(&Token{AccessToken: "tok", ExpiresAt: now.Add(time.Minute)})
	assert.True(t, p.TokenValid(now))
	assert.False(t, p.TokenValid(now.Add(2*time.Minute)))
}

func TestDefaultProfileDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := DefaultProfileDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "postbox"), dir)
}
