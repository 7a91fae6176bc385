// ABOUTME: HTTP client for the postbox-gateway API
// ABOUTME: Runs the nonce/sign/token login and calls the bearer-protected endpoints

package client

import (
	"bytes"
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds each request made with the default HTTP client.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// ErrNotLoggedIn is returned by protected calls made without a token.
var ErrNotLoggedIn = errors.New("not logged in")

// Token is an access token issued by POST /auth/token.
type Token struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// User is a public user profile.
type User struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio"`
	Algorithm   string    `json:"algorithm"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Message is an inbox message.
type Message struct {
	ID        int64     `json:"id"`
	From      int64     `json:"from"`
	To        int64     `json:"to"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Client talks to one gateway. It is safe for concurrent use once the
// token is set.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets a previously issued access token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the gateway at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway URL %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the current access token, if any.
func (c *Client) Token() string {
	return c.token
}

// RequestNonce asks the gateway for a login challenge.
func (c *Client) RequestNonce(ctx context.Context, userID int64) (string, error) {
	var resp struct {
		Nonce string `json:"nonce"`
	}
	path := "/auth/nonce/" + strconv.FormatInt(userID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, false, &resp); err != nil {
		return "", err
	}
	if resp.Nonce == "" {
		return "", errors.New("gateway response did not contain a nonce")
	}
	return resp.Nonce, nil
}

// ExchangeToken redeems a signed challenge for an access token.
func (c *Client) ExchangeToken(ctx context.Context, userID int64, nonce, signature string) (*Token, error) {
	body := map[string]any{"userId": userID, "nonce": nonce, "signature": signature}
	var tok Token
	if err := c.do(ctx, http.MethodPost, "/auth/token", body, false, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("gateway response did not contain an access token")
	}
	return &tok, nil
}

// Login runs the full challenge/response exchange and keeps the token for
// subsequent calls.
func (c *Client) Login(ctx context.Context, userID int64, key crypto.Signer) (*Token, error) {
	nonce, err := c.RequestNonce(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("requesting nonce: %w", err)
	}
	sig, err := SignNonce(key, nonce)
	if err != nil {
		return nil, err
	}
	tok, err := c.ExchangeToken(ctx, userID, nonce, sig)
	if err != nil {
		return nil, fmt.Errorf("exchanging token: %w", err)
	}
	c.token = tok.AccessToken
	return tok, nil
}

// Register creates a user with the given public key PEM.
func (c *Client) Register(ctx context.Context, name, bio, publicKeyPEM string) (*User, error) {
	body := map[string]string{"name": name, "bio": bio, "publicKey": publicKeyPEM}
	var u User
	if err := c.do(ctx, http.MethodPost, "/user/create", body, false, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a public profile.
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), nil, true, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SendMessage delivers body to the inbox of user to.
func (c *Client) SendMessage(ctx context.Context, to int64, body string) (*Message, error) {
	var m Message
	req := map[string]any{"to": to, "body": body}
	if err := c.do(ctx, http.MethodPost, "/msg", req, true, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// InboxPage is one page of an inbox listing. NextAfter is zero on the
// last page.
type InboxPage struct {
	Messages  []Message `json:"messages"`
	NextAfter int64     `json:"nextAfter"`
}

// ListInbox reads one page of messages addressed to the logged-in user,
// oldest first, starting after message id after. A non-positive limit uses
// the gateway default page size.
func (c *Client) ListInbox(ctx context.Context, after int64, limit int) (*InboxPage, error) {
	q := url.Values{}
	if after > 0 {
		q.Set("after", strconv.FormatInt(after, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/msg"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page InboxPage
	if err := c.do(ctx, http.MethodGet, path, nil, true, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Inbox reads every message addressed to the logged-in user, oldest first,
// following page cursors until the last page.
func (c *Client) Inbox(ctx context.Context) ([]Message, error) {
	var all []Message
	var after int64
	for {
		page, err := c.ListInbox(ctx, after, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Messages...)
		if page.NextAfter == 0 || page.NextAfter <= after {
			return all, nil
		}
		after = page.NextAfter
	}
}

// FindUsers looks up users by exact name.
func (c *Client) FindUsers(ctx context.Context, name string) ([]User, error) {
	var users []User
	path := "/user?" + url.Values{"name": {name}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, true, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteMessage removes a message from the logged-in user's inbox.
func (c *Client) DeleteMessage(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/msg/"+strconv.FormatInt(id, 10), nil, true, nil)
}

// Health reports whether the gateway answers /health/ready.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/ready", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		if c.token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
