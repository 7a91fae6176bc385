// ABOUTME: HTTP API handlers for user registration, profiles and inbox messages
// ABOUTME: Protected handlers take the caller's identity from the validated token only

package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/vida/postbox-gateway/internal/auth"
	"github.com/vida/postbox-gateway/internal/store"
)

// maxUserNameLength matches the name limit on CreateUserRequest.
const maxUserNameLength = 64

// CreateUserRequest is the JSON request body for POST /user/create.
type CreateUserRequest struct {
	Name      string `json:"name" validate:"required,max=64"`
	Bio       string `json:"bio" validate:"max=512"`
	PublicKey string `json:"publicKey" validate:"required,max=16384"`
}

// UserResponse is the public profile of a user.
type UserResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio"`
	Algorithm   string    `json:"algorithm"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SendMessageRequest is the JSON request body for POST /msg.
type SendMessageRequest struct {
	To   int64  `json:"to" validate:"required,gt=0"`
	Body string `json:"body" validate:"required,max=4096"`
}

// MessageResponse is a single inbox message.
type MessageResponse struct {
	ID        int64     `json:"id"`
	From      int64     `json:"from"`
	To        int64     `json:"to"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListMessagesResponse is the JSON response for GET /msg. NextAfter is set
// when the page is full and more messages may follow; pass it back as the
// after parameter to read the next page.
type ListMessagesResponse struct {
	Messages  []MessageResponse `json:"messages"`
	NextAfter int64             `json:"nextAfter,omitempty"`
}

// handleCreateUser registers a user after checking that the public key
// decodes to a supported family.
func (g *Gateway) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := g.decodeRequest(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := auth.DecodePublicKey(req.PublicKey)
	if err != nil {
		g.logger.Debug("rejected public key", "error", err)
		g.sendJSONError(w, http.StatusBadRequest, keyErrorMessage(err))
		return
	}

	user := &store.User{Name: req.Name, Bio: req.Bio, PublicKey: req.PublicKey}
	if err := g.store.CreateUser(r.Context(), user); err != nil {
		g.logger.Error("creating user", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp, err := userResponse(user, key)
	if err != nil {
		g.logger.Error("fingerprinting key", "user_id", user.ID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	g.logger.Info("user registered", "user_id", user.ID, "algorithm", key.Algorithm)
	g.writeJSON(w, http.StatusCreated, resp)
}

// handleGetUser returns a user's public profile.
func (g *Gateway) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := g.pathID(w, r, "id", "invalid user id")
	if !ok {
		return
	}

	user, err := g.store.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		g.logger.Error("loading user", "user_id", id, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	key, err := auth.DecodePublicKey(user.PublicKey)
	if err != nil {
		g.logger.Error("stored key unreadable", "user_id", id, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp, err := userResponse(user, key)
	if err != nil {
		g.logger.Error("fingerprinting key", "user_id", id, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	g.writeJSON(w, http.StatusOK, resp)
}

// handleListMessages returns one page of the caller's inbox, oldest first.
// The after query parameter is the id of the last message already seen.
func (g *Gateway) handleListMessages(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())
	query := r.URL.Query()

	limit := store.DefaultMessageLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > store.MaxMessageLimit {
			g.sendJSONError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(store.MaxMessageLimit))
			return
		}
		limit = n
	}

	var after int64
	if raw := query.Get("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			g.sendJSONError(w, http.StatusBadRequest, "after must be a non-negative message id")
			return
		}
		after = n
	}

	msgs, err := g.store.ListMessagesByRecipient(r.Context(), caller.UserID, after, limit)
	if err != nil {
		g.logger.Error("listing messages", "user_id", caller.UserID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := ListMessagesResponse{Messages: make([]MessageResponse, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, messageResponse(m))
	}
	if len(msgs) == limit {
		resp.NextAfter = msgs[len(msgs)-1].ID
	}
	g.writeJSON(w, http.StatusOK, resp)
}

// handleSendMessage stores a message from the caller to another user.
func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	var req SendMessageRequest
	if err := g.decodeRequest(w, r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := g.store.GetUser(r.Context(), req.To); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusBadRequest, "unknown recipient")
			return
		}
		g.logger.Error("loading recipient", "user_id", req.To, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	msg := &store.Message{Recipient: req.To, Sender: caller.UserID, Body: req.Body}
	if err := g.store.SaveMessage(r.Context(), msg); err != nil {
		g.logger.Error("saving message", "sender", caller.UserID, "recipient", req.To, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	g.writeJSON(w, http.StatusCreated, messageResponse(msg))
}

// handleDeleteMessage removes a message from the caller's inbox. Messages
// addressed to someone else are reported as not found.
func (g *Gateway) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())

	id, ok := g.pathID(w, r, "id", "invalid message id")
	if !ok {
		return
	}

	msg, err := g.store.GetMessage(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && msg.Recipient != caller.UserID) {
		g.sendJSONError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		g.logger.Error("loading message", "message_id", id, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := g.store.DeleteMessage(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "message not found")
			return
		}
		g.logger.Error("deleting message", "message_id", id, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

// pathID parses a positive integer path parameter, writing a 400 on failure.
func (g *Gateway) pathID(w http.ResponseWriter, r *http.Request, name, msg string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		g.sendJSONError(w, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}

// keyErrorMessage turns a key decoding failure into a client message.
func keyErrorMessage(err error) string {
	if errors.Is(err, auth.ErrUnsupportedAlgorithm) {
		return "unsupported key algorithm: use RSA or EC"
	}
	return "invalid public key"
}

func userResponse(user *store.User, key *auth.PublicKey) (UserResponse, error) {
	fp, err := auth.Fingerprint(key.Key)
	if err != nil {
		return UserResponse{}, err
	}
	return UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Bio:         user.Bio,
		Algorithm:   string(key.Algorithm),
		Fingerprint: fp,
		CreatedAt:   user.CreatedAt.UTC(),
	}, nil
}

func messageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		From:      m.Sender,
		To:        m.Recipient,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

// handleFindUsers looks users up by exact name so a sender can learn a
// recipient's id. An unknown name yields an empty list.
func (g *Gateway) handleFindUsers(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" || len(name) > maxUserNameLength {
		g.sendJSONError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	users, err := g.store.ListUsersByName(r.Context(), name)
	if err != nil {
		g.logger.Error("finding users", "name", name, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, user := range users {
		key, err := auth.DecodePublicKey(user.PublicKey)
		if err != nil {
			g.logger.Error("stored key unreadable", "user_id", user.ID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal error")
			return
		}
		profile, err := userResponse(user, key)
		if err != nil {
			g.logger.Error("fingerprinting key", "user_id", user.ID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp = append(resp, profile)
	}
	g.writeJSON(w, http.StatusOK, resp)
}
