// ABOUTME: Tests for key generation, PEM persistence and nonce signing
// ABOUTME: Signatures are checked with the gateway's own verifier

package client

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vida/postbox-gateway/internal/auth"
)

func testNonce(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func TestGenerateKey(t *testing.T) {
	rsaKey, err := GenerateKey(KeyTypeRSA)
	require.NoError(t, err)
	assert.IsType(t, &rsa.PrivateKey{}, rsaKey)

	ecKey, err := GenerateKey("EC")
	require.NoError(t, err)
	assert.IsType(t, &ecdsa.PrivateKey{}, ecKey)

	_, err = GenerateKey("ed25519")
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}

func TestSaveAndLoadKeyPair(t *testing.T) {
	for _, kind := range []KeyType{KeyTypeRSA, KeyTypeEC} {
		t.Run(string(kind), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "keys")
			privPath := filepath.Join(dir, "private_key.pem")
			pubPath := filepath.Join(dir, "public_key.pem")

			key, err := GenerateKey(kind)
			require.NoError(t, err)
			require.NoError(t, SaveKeyPair(privPath, pubPath, key))

			info, err := os.Stat(privPath)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := LoadPrivateKey(privPath)
			require.NoError(t, err)
			assert.True(t, key.Public().(interface{ Equal(crypto.PublicKey) bool }).Equal(loaded.Public()))

			pubPEM, err := os.ReadFile(pubPath)
			require.NoError(t, err)
			decoded, err := auth.DecodePublicKey(string(pubPEM))
			require.NoError(t, err)
			assert.NotNil(t, decoded)
		})
	}
}

func TestLoadPrivateKey_LegacyFormats(t *testing.T) {
	dir := t.TempDir()

	rsaKey, err := GenerateKey(KeyTypeRSA)
	require.NoError(t, err)
	pkcs1 := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(rsaKey.(*rsa.PrivateKey)),
	})
	rsaPath := filepath.Join(dir, "rsa.pem")
	require.NoError(t, os.WriteFile(rsaPath, pkcs1, 0600))
	_, err = LoadPrivateKey(rsaPath)
	assert.NoError(t, err)

	ecKey, err := GenerateKey(KeyTypeEC)
	require.NoError(t, err)
	sec1, err := x509.MarshalECPrivateKey(ecKey.(*ecdsa.PrivateKey))
	require.NoError(t, err)
	ecPath := filepath.Join(dir, "ec.pem")
	require.NoError(t, os.WriteFile(ecPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: sec1}), 0600))
	_, err = LoadPrivateKey(ecPath)
	assert.NoError(t, err)
}

func TestLoadPrivateKey_Rejects(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPrivateKey(filepath.Join(dir, "missing.pem"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not pem"), 0600))
	_, err = LoadPrivateKey(garbage)
	assert.Error(t, err)

	_, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(edPriv)
	require.NoError(t, err)
	edPath := filepath.Join(dir, "ed.pem")
	require.NoError(t, os.WriteFile(edPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0600))
	_, err = LoadPrivateKey(edPath)
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}

func TestSignNonce_VerifiesWithGateway(t *testing.T) {
	for _, kind := range []KeyType{KeyTypeRSA, KeyTypeEC} {
		t.Run(string(kind), func(t *testing.T) {
			key, err := GenerateKey(kind)
			require.NoError(t, err)
			pubPEM, err := PublicKeyPEM(key)
			require.NoError(t, err)
			pub, err := auth.DecodePublicKey(pubPEM)
			require.NoError(t, err)

			nonce := testNonce(t)
			sig, err := SignNonce(key, nonce)
			require.NoError(t, err)
			assert.NotContains(t, sig, "=")

			ok, err := auth.VerifySignature(pub, nonce, sig)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestSignNonce_Rejects(t *testing.T) {
	key, err := GenerateKey(KeyTypeEC)
	require.NoError(t, err)
	_, err = SignNonce(key, "***")
	assert.Error(t, err)

	_, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = SignNonce(edPriv, testNonce(t))
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}
