// ABOUTME: TOML profile for the postbox CLI
// ABOUTME: Remembers the gateway URL, user id, key paths and last access token

package client

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultServer is used when a profile does not name a gateway.
const DefaultServer = "http://localhost:8080"

// Profile is the persisted CLI state.
type Profile struct {
	Server         string    `toml:"server"`
	UserID         int64     `toml:"user_id"`
	PrivateKey     string    `toml:"private_key"`
	PublicKey      string    `toml:"public_key"`
	Token          string    `toml:"token,omitempty"`
	TokenExpiresAt time.Time `toml:"token_expires_at,omitempty"`
}

// DefaultProfileDir returns $XDG_CONFIG_HOME/postbox or ~/.config/postbox.
func DefaultProfileDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "postbox"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "postbox"), nil
}

// NewProfile returns a profile with keys stored next to the profile file.
func NewProfile(dir string) *Profile {
	return &Profile{
		Server:     DefaultServer,
		PrivateKey: filepath.Join(dir, "private_key.pem"),
		PublicKey:  filepath.Join(dir, "public_key.pem"),
	}
}

// LoadProfile reads a profile. A missing file yields a fresh profile rooted
// in the file's directory.
func LoadProfile(path string) (*Profile, error) {
	p := NewProfile(filepath.Dir(path))
	if _, err := toml.DecodeFile(path, p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if p.Server == "" {
		p.Server = DefaultServer
	}
	return p, nil
}

// Save writes the profile with mode 0600 since it may hold a token.
func (p *Profile) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}

// TokenValid reports whether the saved token is present and unexpired at now.
func (p *Profile) TokenValid(now time.Time) bool {
	return p.Token != "" && now.Before(p.TokenExpiresAt)
}

// SetToken records a freshly issued token.
func (p *Profile) SetToken(tok *Token) {
	p.Token = tok.AccessToken
	p.TokenExpiresAt = tok.ExpiresAt
}
