// ABOUTME: OpenSSH public key support for registered user keys
// ABOUTME: Parses authorized_keys lines and computes SHA256 fingerprints

package auth

import (
	"crypto"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// authorizedKeyPrefixes are the OpenSSH key types a user may register.
// ssh-ed25519 is recognized so it can be rejected with a precise error.
var authorizedKeyPrefixes = []string{
	ssh.KeyAlgoRSA + " ",
	ssh.KeyAlgoECDSA256 + " ",
	ssh.KeyAlgoECDSA384 + " ",
	ssh.KeyAlgoECDSA521 + " ",
	ssh.KeyAlgoED25519 + " ",
}

// isAuthorizedKey reports whether text looks like an authorized_keys line.
func isAuthorizedKey(text string) bool {
	for _, p := range authorizedKeyPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// decodeAuthorizedKey converts an authorized_keys line into a tagged key.
func decodeAuthorizedKey(text string) (*PublicKey, error) {
	sshKey, _, _, rest, err := ssh.ParseAuthorizedKey([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid authorized key: %v", ErrDecode, err)
	}
	if len(strings.TrimSpace(string(rest))) > 0 {
		return nil, fmt.Errorf("%w: more than one authorized key", ErrDecode)
	}

	cryptoKey, ok := sshKey.(ssh.CryptoPublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, sshKey.Type())
	}
	return classifyKey(cryptoKey.CryptoPublicKey())
}

// Fingerprint returns the OpenSSH SHA256 fingerprint of a public key,
// e.g. "SHA256:uNiVztksCsDhcc0u9e8BujQXVUpKZIDTMczCvj3tD2s".
func Fingerprint(key crypto.PublicKey) (string, error) {
	sshKey, err := ssh.NewPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("converting public key: %w", err)
	}
	return ssh.FingerprintSHA256(sshKey), nil
}
