// ABOUTME: HTTP handlers for the two-step challenge/response login
// ABOUTME: GET /auth/nonce/{userId} issues a challenge, POST /auth/token redeems it

package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/vida/postbox-gateway/internal/auth"
)

// NonceResponse is the JSON response for GET /auth/nonce/{userId}.
type NonceResponse struct {
	Nonce string `json:"nonce"`
}

// TokenRequest is the JSON request body for POST /auth/token.
type TokenRequest struct {
	UserID    int64  `json:"userId" validate:"required,gt=0"`
	Nonce     string `json:"nonce" validate:"required,max=256"`
	Signature string `json:"signature" validate:"required,max=4096"`
}

// TokenResponse is the JSON response for POST /auth/token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (g *Gateway) handleRequestNonce(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil || userID <= 0 {
		g.sendJSONError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	value, err := g.authenticator.RequestNonce(r.Context(), userID)
	if err != nil {
		g.writeAuthError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, NonceResponse{Nonce: value})
}

func (g *Gateway) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := g.decodeRequest(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	issued, err := g.authenticator.SubmitProof(r.Context(), req.UserID, req.Nonce, req.Signature)
	if err != nil {
		g.writeAuthError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: issued.AccessToken,
		TokenType:   issued.TokenType,
		ExpiresAt:   issued.ExpiresAt.UTC(),
	})
}

// writeAuthError maps login failures to 400 with one of three client
// messages. Anything else is an internal error.
func (g *Gateway) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnknownUser):
		g.sendJSONError(w, http.StatusBadRequest, auth.ErrUnknownUser.Error())
	case errors.Is(err, auth.ErrInvalidOrExpiredNonce):
		g.sendJSONError(w, http.StatusBadRequest, auth.ErrInvalidOrExpiredNonce.Error())
	case errors.Is(err, auth.ErrSignatureInvalid):
		g.sendJSONError(w, http.StatusBadRequest, auth.ErrSignatureInvalid.Error())
	default:
		g.logger.Error("login failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
