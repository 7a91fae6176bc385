// Package auth implements challenge/response login and access tokens for
// postbox-gateway.
//
// # Login Protocol
//
// A user registers a public key once. To log in, the client runs two steps:
//
//  1. RequestNonce(userID): the gateway issues a random 32-byte challenge,
//     base64url encoded without padding, and remembers it for that user.
//  2. SubmitProof(userID, nonce, signature): the client signs the decoded
//     challenge bytes with its private key. The gateway consumes the
//     challenge, verifies the signature with the registered key and returns
//     an HS256 access token.
//
// A challenge is consumed before the signature is checked, so it can be
// redeemed at most once whether or not the proof succeeds. Requesting a new
// challenge replaces the previous one.
//
// # Key Formats
//
// DecodePublicKey accepts:
//
//   - PEM "PUBLIC KEY" (SubjectPublicKeyInfo) holding RSA or ECDSA
//   - PEM "RSA PUBLIC KEY" (PKCS#1)
//   - OpenSSH authorized_keys lines for ssh-rsa and ecdsa-sha2-*
//
// RSA is probed before EC. Signatures are SHA-256 with RSA PKCS#1 v1.5 or
// ASN.1 DER encoded ECDSA.
//
// # Errors
//
// Callers of the Authenticator only ever see ErrUnknownUser,
// ErrInvalidOrExpiredNonce, ErrSignatureInvalid or an internal error. The
// lower level decode and verification errors are logged and collapsed.
//
// # HTTP
//
// RequireToken wraps handlers that need an authenticated caller. The user
// ID is taken from the validated token and stored in the request context:
//
//	mux.Handle("GET /msg", auth.RequireToken(tokens, logger)(inbox))
//	id := auth.MustFromContext(r.Context()).UserID
package auth
