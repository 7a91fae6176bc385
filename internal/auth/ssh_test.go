// ABOUTME: Tests for OpenSSH authorized key decoding and fingerprints
// ABOUTME: Uses golang.org/x/crypto/ssh to produce real authorized_keys lines

package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func authorizedLine(t *testing.T, pub any, comment string) string {
	t.Helper()
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
	if comment != "" {
		line += " " + comment
	}
	return line
}

func TestDecodePublicKey_AuthorizedKeyRSA(t *testing.T) {
	priv := generateRSAKey(t)
	line := authorizedLine(t, &priv.PublicKey, "alice@laptop")

	key, err := DecodePublicKey(line)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmRSA, key.Algorithm)
	assert.True(t, priv.PublicKey.Equal(key.Key))
}

func TestDecodePublicKey_AuthorizedKeyECDSA(t *testing.T) {
	priv := generateECKey(t)
	line := authorizedLine(t, &priv.PublicKey, "")

	key, err := DecodePublicKey(line + "\n")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmEC, key.Algorithm)
	assert.True(t, priv.PublicKey.Equal(key.Key))
}

func TestDecodePublicKey_AuthorizedKeyEd25519Unsupported(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	_, err = DecodePublicKey(authorizedLine(t, pub, "bob"))
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestDecodePublicKey_AuthorizedKeyMalformed(t *testing.T) {
	_, err := DecodePublicKey("ssh-rsa AAAAnotbase64!!!")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodePublicKey_MultipleAuthorizedKeys(t *testing.T) {
	a := authorizedLine(t, &generateECKey(t).PublicKey, "a")
	b := authorizedLine(t, &generateECKey(t).PublicKey, "b")

	_, err := DecodePublicKey(a + "\n" + b)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFingerprint(t *testing.T) {
	priv := generateECKey(t)

	fp, err := Fingerprint(&priv.PublicKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fp, "SHA256:"), "fingerprint %q", fp)

	again, err := Fingerprint(&priv.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, fp, again)

	other, err := Fingerprint(&generateECKey(t).PublicKey)
	require.NoError(t, err)
	assert.NotEqual(t, fp, other)
}

func TestFingerprint_MatchesAcrossFormats(t *testing.T) {
	priv := generateRSAKey(t)
	pemText, err := EncodePublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	fromPEM, err := DecodePublicKey(pemText)
	require.NoError(t, err)
	fromSSH, err := DecodePublicKey(authorizedLine(t, &priv.PublicKey, ""))
	require.NoError(t, err)

	fp1, err := Fingerprint(fromPEM.Key)
	require.NoError(t, err)
	fp2, err := Fingerprint(fromSSH.Key)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}
