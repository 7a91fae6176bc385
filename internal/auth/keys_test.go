// ABOUTME: Tests for public key decoding and family tagging
// ABOUTME: Covers PEM variants, probe order, and rejection of malformed input

package auth

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func generateECKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func pemFor(t *testing.T, blockType string, der []byte) string {
	t.Helper()
	return string(pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}))
}

func TestDecodePublicKey_RSAPKIX(t *testing.T) {
	priv := generateRSAKey(t)
	text, err := EncodePublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	key, err := DecodePublicKey(text)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmRSA, key.Algorithm)
	assert.True(t, priv.PublicKey.Equal(key.Key))
}

func TestDecodePublicKey_RSAPKCS1(t *testing.T) {
	priv := generateRSAKey(t)
	text := pemFor(t, "RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(&priv.PublicKey))

	key, err := DecodePublicKey(text)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmRSA, key.Algorithm)
	assert.True(t, priv.PublicKey.Equal(key.Key))
}

func TestDecodePublicKey_EC(t *testing.T) {
	for _, curve := range []elliptic.Curve{elliptic.P256(), elliptic.P384(), elliptic.P521()} {
		t.Run(curve.Params().Name, func(t *testing.T) {
			priv, err := ecdsa.GenerateKey(curve, rand.Reader)
			require.NoError(t, err)
			text, err := EncodePublicKeyPEM(&priv.PublicKey)
			require.NoError(t, err)

			key, err := DecodePublicKey(text)
			require.NoError(t, err)
			assert.Equal(t, AlgorithmEC, key.Algorithm)
			assert.True(t, priv.PublicKey.Equal(key.Key))
		})
	}
}

func TestDecodePublicKey_SurroundingWhitespace(t *testing.T) {
	priv := generateECKey(t)
	text, err := EncodePublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	key, err := DecodePublicKey("\n\n  " + text + "\n  ")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmEC, key.Algorithm)
}

func TestDecodePublicKey_Rejects(t *testing.T) {
	rsaPriv := generateRSAKey(t)
	rsaPEM, err := EncodePublicKeyPEM(&rsaPriv.PublicKey)
	require.NoError(t, err)

	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	edDER, err := x509.MarshalPKIXPublicKey(edPub)
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace only", text: "   \n"},
		{name: "not pem", text: "hello world"},
		{name: "garbage der", text: pemFor(t, "PUBLIC KEY", []byte{0x30, 0x03, 0x01, 0x02, 0x03})},
		{name: "empty block", text: pemFor(t, "PUBLIC KEY", nil)},
		{name: "private key block", text: pemFor(t, "PRIVATE KEY", x509.MarshalPKCS1PublicKey(&rsaPriv.PublicKey))},
		{name: "certificate block", text: pemFor(t, "CERTIFICATE", []byte{0x30, 0x00})},
		{name: "trailing data", text: rsaPEM + "extra"},
		{name: "two keys", text: rsaPEM + rsaPEM},
		{name: "ed25519 pkix", text: pemFor(t, "PUBLIC KEY", edDER)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DecodePublicKey(tt.text)
			require.ErrorIs(t, err, ErrDecode)
			assert.Nil(t, key)
		})
	}
}

func TestDecodeDER_ProbeOrder(t *testing.T) {
	rsaPriv := generateRSAKey(t)
	ecPriv := generateECKey(t)

	rsaDER, err := x509.MarshalPKIXPublicKey(&rsaPriv.PublicKey)
	require.NoError(t, err)
	ecDER, err := x509.MarshalPKIXPublicKey(&ecPriv.PublicKey)
	require.NoError(t, err)

	key, err := DecodeDER(rsaDER)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmRSA, key.Algorithm)

	key, err = DecodeDER(x509.MarshalPKCS1PublicKey(&rsaPriv.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, AlgorithmRSA, key.Algorithm)

	key, err = DecodeDER(ecDER)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmEC, key.Algorithm)
}

func TestClassifyKey_Unsupported(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	_, err = classifyKey(edPub)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
