// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu        sync.RWMutex
	users     map[int64]*User    // keyed by user ID
	messages  map[int64]*Message // keyed by message ID
	nextUser  int64
	nextMsg   int64
	pingErr   error
	getUserFn func(ctx context.Context, id int64) (*User, error)
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[int64]*User),
		messages: make(map[int64]*Message),
	}
}

// SetPingError makes Ping return err.
func (m *MockStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// SetGetUserFunc overrides GetUser, e.g. to simulate database failures.
func (m *MockStore) SetGetUserFunc(fn func(ctx context.Context, id int64) (*User, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getUserFn = fn
}

// PutUser stores a user under an explicit ID, overwriting any existing one.
func (m *MockStore) PutUser(user *User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = &u
	if u.ID > m.nextUser {
		m.nextUser = u.ID
	}
}

// CreateUser stores a new user and assigns its ID.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextUser++
	user.ID = m.nextUser
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	// Make a copy to avoid external modification
	u := *user
	m.users[u.ID] = &u
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id int64) (*User, error) {
	m.mu.RLock()
	fn := m.getUserFn
	m.mu.RUnlock()
	if fn != nil {
		return fn(ctx, id)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// ListUsersByName returns users with the given name, ordered by ID.
func (m *MockStore) ListUsersByName(ctx context.Context, name string) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []*User
	for _, u := range m.users {
		if u.Name == name {
			c := *u
			users = append(users, &c)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// SaveMessage stores a new message and assigns its ID.
func (m *MockStore) SaveMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMsg++
	msg.ID = m.nextMsg
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	c := *msg
	m.messages[c.ID] = &c
	return nil
}

// GetMessage retrieves a message by ID.
func (m *MockStore) GetMessage(ctx context.Context, id int64) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *msg
	return &c, nil
}

// ListMessagesByRecipient returns the recipient's messages with id above
// afterID, in id order.
func (m *MockStore) ListMessagesByRecipient(ctx context.Context, recipient, afterID int64, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var msgs []*Message
	for _, msg := range m.messages {
		if msg.Recipient == recipient && msg.ID > afterID {
			c := *msg
			msgs = append(msgs, &c)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

// DeleteMessage removes a message by ID.
func (m *MockStore) DeleteMessage(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[id]; !ok {
		return ErrNotFound
	}
	delete(m.messages, id)
	return nil
}

// Ping returns the configured ping error, if any.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingErr
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

// Compile-time interface check
var _ Store = (*MockStore)(nil)
var _ Store = (*SQLiteStore)(nil)
