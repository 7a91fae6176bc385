// ABOUTME: Client-side key pairs for challenge/response login
// ABOUTME: Generates RSA or EC keys, stores them as PEM, and signs nonces

package client

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyType selects the family of a generated key pair.
type KeyType string

// Supported key types
const (
	KeyTypeRSA KeyType = "rsa"
	KeyTypeEC  KeyType = "ec"
)

// RSAKeyBits is the modulus size for generated RSA keys.
const RSAKeyBits = 2048

// ErrUnsupportedKey is returned for key types other than RSA and ECDSA.
var ErrUnsupportedKey = errors.New("unsupported key type")

// GenerateKey creates a fresh private key. EC keys use P-256.
func GenerateKey(kind KeyType) (crypto.Signer, error) {
	switch KeyType(strings.ToLower(string(kind))) {
	case KeyTypeRSA:
		return rsa.GenerateKey(rand.Reader, RSAKeyBits)
	case KeyTypeEC:
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKey, kind)
	}
}

// SaveKeyPair writes the private key as PKCS#8 PEM (mode 0600) and the
// public key as SubjectPublicKeyInfo PEM. Parent directories are created.
func SaveKeyPair(privatePath, publicPath string, key crypto.Signer) error {
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshaling private key: %w", err)
	}
	pubPEM, err := PublicKeyPEM(key)
	if err != nil {
		return err
	}

	for _, p := range []string{privatePath, publicPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	if err := os.WriteFile(privatePath, privPEM, 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(publicPath, []byte(pubPEM), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

// PublicKeyPEM renders the public half of key as a "PUBLIC KEY" PEM block.
func PublicKeyPEM(key crypto.Signer) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		return "", fmt.Errorf("marshaling public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// LoadPrivateKey reads a PEM private key in PKCS#8, PKCS#1 or SEC 1 form.
func LoadPrivateKey(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#8 key: %w", err)
		}
		return asSigner(key)
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: PEM block %q", ErrUnsupportedKey, block.Type)
	}
}

func asSigner(key any) (crypto.Signer, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
}

// SignNonce signs the decoded nonce bytes with SHA-256 and returns the
// signature as unpadded base64url. RSA keys produce PKCS#1 v1.5 signatures
// and EC keys produce ASN.1 DER signatures.
func SignNonce(key crypto.Signer, nonce string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(nonce, "="))
	if err != nil {
		return "", fmt.Errorf("decoding nonce: %w", err)
	}
	if _, err := asSigner(key); err != nil {
		return "", err
	}

	digest := sha256.Sum256(raw)
	sig, err := key.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("signing nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}
