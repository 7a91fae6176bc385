// ABOUTME: Sentinel errors for challenge/response login and token validation
// ABOUTME: Callers match them with errors.Is; detail is carried by wrapping

package auth

import "errors"

// Login protocol errors
var (
	ErrUnknownUser           = errors.New("unknown user")
	ErrInvalidOrExpiredNonce = errors.New("invalid or expired nonce")
	ErrSignatureInvalid      = errors.New("invalid signature")
)

// Key and signature errors
var (
	// ErrDecode covers malformed key text and malformed base64 input.
	ErrDecode = errors.New("decode error")

	// ErrUnsupportedAlgorithm is returned for key families other than RSA and EC.
	ErrUnsupportedAlgorithm = errors.New("unsupported key algorithm")

	// ErrVerification is a fault inside verification (bad key type, corrupt
	// signature structure). It always means the proof failed.
	ErrVerification = errors.New("verification error")
)

// Token errors
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrWeakSecret   = errors.New("jwt secret too short")
)
