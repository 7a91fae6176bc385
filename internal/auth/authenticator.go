// ABOUTME: Challenge/response login: request a nonce, prove key possession, get a token
// ABOUTME: Composes the nonce registry, key decoding, signature checks and token issuing

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vida/postbox-gateway/internal/nonce"
	"github.com/vida/postbox-gateway/internal/store"
)

// UserLookup loads the user record holding a registered public key.
// It returns store.ErrNotFound for unknown users.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*store.User, error)
}

// ChallengeRegistry issues and redeems single-use challenges.
type ChallengeRegistry interface {
	Issue(userID int64) (string, error)
	Consume(userID int64, supplied string) (string, error)
}

// TokenIssuer creates access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64) (string, time.Time, error)
}

// IssuedToken is the result of a successful login.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Authenticator runs the two-step login protocol. It keeps no state of its
// own; the outstanding challenge lives in the registry.
type Authenticator struct {
	users      UserLookup
	challenges ChallengeRegistry
	tokens     TokenIssuer
	logger     *slog.Logger
}

// NewAuthenticator wires the login protocol to its collaborators.
func NewAuthenticator(users UserLookup, challenges ChallengeRegistry, tokens TokenIssuer, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		users:      users,
		challenges: challenges,
		tokens:     tokens,
		logger:     logger.With("component", "auth"),
	}
}

// RequestNonce issues a fresh challenge for a registered user, replacing any
// challenge the user had outstanding.
func (a *Authenticator) RequestNonce(ctx context.Context, userID int64) (string, error) {
	if _, err := a.lookupUser(ctx, userID); err != nil {
		return "", err
	}

	value, err := a.challenges.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("issuing challenge: %w", err)
	}

	a.logger.Debug("challenge issued", "user_id", userID)
	return value, nil
}

// SubmitProof redeems the challenge and checks the signature over it with the
// user's registered key. The challenge is consumed before the signature is
// checked, so a failed proof still burns it.
func (a *Authenticator) SubmitProof(ctx context.Context, userID int64, claimedNonce, signature string) (*IssuedToken, error) {
	user, err := a.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	challenge, err := a.challenges.Consume(userID, claimedNonce)
	if err != nil {
		if !errors.Is(err, nonce.ErrNotFound) {
			a.logger.Error("consuming challenge", "user_id", userID, "error", err)
		}
		a.logFailure("nonce rejected", userID)
		return nil, ErrInvalidOrExpiredNonce
	}

	key, err := registeredKey(user)
	if err != nil {
		a.logFailure("registered key unusable", userID, "error", err)
		return nil, ErrSignatureInvalid
	}

	ok, err := VerifySignature(key.PublicKey, challenge, signature)
	if err != nil {
		a.logFailure("signature check failed", userID, "algorithm", key.Algorithm, "error", err)
		return nil, ErrSignatureInvalid
	}
	if !ok {
		a.logFailure("signature mismatch", userID, "algorithm", key.Algorithm)
		return nil, ErrSignatureInvalid
	}

	token, expiresAt, err := a.tokens.Issue(userID)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	a.logger.Info("user authenticated", "user_id", userID, "algorithm", key.Algorithm)
	return &IssuedToken{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// lookupUser maps store misses to ErrUnknownUser.
func (a *Authenticator) lookupUser(ctx context.Context, userID int64) (*store.User, error) {
	user, err := a.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		a.logFailure("unknown user", userID)
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user %d: %w", userID, err)
	}
	return user, nil
}

// registeredKey decodes the public key stored on a user record.
func registeredKey(user *store.User) (*RegisteredKey, error) {
	key, err := DecodePublicKey(user.PublicKey)
	if err != nil {
		return nil, err
	}
	return &RegisteredKey{UserID: user.ID, PublicKey: key}, nil
}

// logFailure logs an authentication failure with structured context.
func (a *Authenticator) logFailure(reason string, userID int64, attrs ...any) {
	baseAttrs := []any{"reason", reason, "user_id", userID}
	a.logger.Warn("auth failure", append(baseAttrs, attrs...)...)
}
