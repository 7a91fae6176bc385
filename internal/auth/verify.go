// ABOUTME: Signature verification for challenge/response login
// ABOUTME: SHA-256 with RSA PKCS#1 v1.5 or ECDSA, selected by the key family

package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// DecodeBase64URL decodes URL-safe base64 with or without padding.
func DecodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty base64 input", ErrDecode)
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64url: %v", ErrDecode, err)
	}
	return b, nil
}

// VerifySignature checks a base64url signature over the base64url-decoded
// message. It returns (false, nil) when the signature simply does not match.
// Malformed base64 yields ErrDecode; a broken key or signature structure
// yields ErrVerification; an unknown family yields ErrUnsupportedAlgorithm.
func VerifySignature(key *PublicKey, messageB64, signatureB64 string) (bool, error) {
	if key == nil || key.Key == nil {
		return false, fmt.Errorf("%w: no key", ErrUnsupportedAlgorithm)
	}

	message, err := DecodeBase64URL(messageB64)
	if err != nil {
		return false, fmt.Errorf("message: %w", err)
	}
	sig, err := DecodeBase64URL(signatureB64)
	if err != nil {
		return false, fmt.Errorf("signature: %w", err)
	}

	return verifyRaw(key, message, sig)
}

// verifyRaw dispatches on the key family.
func verifyRaw(key *PublicKey, message, sig []byte) (bool, error) {
	digest := sha256.Sum256(message)

	switch key.Algorithm {
	case AlgorithmRSA:
		pub, ok := key.Key.(*rsa.PublicKey)
		if !ok {
			return false, fmt.Errorf("%w: RSA tag on %T", ErrVerification, key.Key)
		}
		return verifyRSA(pub, digest[:], sig)
	case AlgorithmEC:
		pub, ok := key.Key.(*ecdsa.PublicKey)
		if !ok {
			return false, fmt.Errorf("%w: EC tag on %T", ErrVerification, key.Key)
		}
		return verifyECDSA(pub, digest[:], sig)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, key.Algorithm)
	}
}

func verifyRSA(pub *rsa.PublicKey, digest, sig []byte) (bool, error) {
	if len(sig) != pub.Size() {
		return false, fmt.Errorf("%w: RSA signature is %d bytes, want %d", ErrVerification, len(sig), pub.Size())
	}
	err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, sig)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, rsa.ErrVerification) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrVerification, err)
}

func verifyECDSA(pub *ecdsa.PublicKey, digest, sig []byte) (bool, error) {
	if !wellFormedECDSASignature(sig) {
		return false, fmt.Errorf("%w: malformed ECDSA signature", ErrVerification)
	}
	return ecdsa.VerifyASN1(pub, digest, sig), nil
}

// wellFormedECDSASignature checks for exactly SEQUENCE { INTEGER r, INTEGER s }
// with nothing trailing.
func wellFormedECDSASignature(sig []byte) bool {
	var inner cryptobyte.String
	input := cryptobyte.String(sig)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() {
		return false
	}
	var r, s []byte
	if !inner.ReadASN1Integer(&r) || !inner.ReadASN1Integer(&s) || !inner.Empty() {
		return false
	}
	return true
}
