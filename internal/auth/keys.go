// ABOUTME: Public key decoding for registered user keys
// ABOUTME: Probes PEM/DER key material as RSA first, then EC, and tags the family

package auth

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// KeyAlgorithm identifies the signature family of a registered key.
type KeyAlgorithm string

// Supported key families
const (
	AlgorithmRSA KeyAlgorithm = "RSA"
	AlgorithmEC  KeyAlgorithm = "EC"
)

// PublicKey is a decoded public key tagged with its family.
type PublicKey struct {
	Algorithm KeyAlgorithm
	Key       crypto.PublicKey
}

// RegisteredKey is the decoded public key of a specific user.
type RegisteredKey struct {
	UserID int64
	*PublicKey
}

// keyProbe attempts to interpret DER bytes as one key family.
type keyProbe struct {
	algorithm KeyAlgorithm
	parse     func(der []byte) (crypto.PublicKey, bool)
}

// keyProbes run in this order; the first structural match wins.
var keyProbes = []keyProbe{
	{algorithm: AlgorithmRSA, parse: probeRSA},
	{algorithm: AlgorithmEC, parse: probeEC},
}

// probeRSA accepts PKCS#1 RSAPublicKey and SubjectPublicKeyInfo holding RSA.
func probeRSA(der []byte) (crypto.PublicKey, bool) {
	if pub, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return pub, true
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, false
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	return rsaPub, ok
}

// probeEC accepts SubjectPublicKeyInfo holding an ECDSA key.
func probeEC(der []byte) (crypto.PublicKey, bool) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, false
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	return ecPub, ok
}

// DecodePublicKey parses a textual public key. PEM envelopes ("PUBLIC KEY" or
// "RSA PUBLIC KEY") and OpenSSH authorized-key lines are accepted.
func DecodePublicKey(text string) (*PublicKey, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty key", ErrDecode)
	}

	if isAuthorizedKey(trimmed) {
		return decodeAuthorizedKey(trimmed)
	}

	block, rest := pem.Decode([]byte(trimmed))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrDecode)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return nil, fmt.Errorf("%w: unexpected data after PEM block", ErrDecode)
	}
	if block.Type != "PUBLIC KEY" && block.Type != "RSA PUBLIC KEY" {
		return nil, fmt.Errorf("%w: unexpected PEM block type %q", ErrDecode, block.Type)
	}
	if len(block.Bytes) == 0 {
		return nil, fmt.Errorf("%w: empty PEM block", ErrDecode)
	}

	return DecodeDER(block.Bytes)
}

// DecodeDER tags raw DER key bytes by probing each supported family in order.
func DecodeDER(der []byte) (*PublicKey, error) {
	for _, p := range keyProbes {
		if key, ok := p.parse(der); ok {
			return &PublicKey{Algorithm: p.algorithm, Key: key}, nil
		}
	}
	return nil, fmt.Errorf("%w: not an RSA or EC public key", ErrDecode)
}

// classifyKey tags an already parsed key, keeping the RSA before EC order.
func classifyKey(key crypto.PublicKey) (*PublicKey, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return &PublicKey{Algorithm: AlgorithmRSA, Key: k}, nil
	case *ecdsa.PublicKey:
		return &PublicKey{Algorithm: AlgorithmEC, Key: k}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedAlgorithm, key)
	}
}

// EncodePublicKeyPEM renders a public key as a SubjectPublicKeyInfo PEM block.
func EncodePublicKeyPEM(key crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("marshaling public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
