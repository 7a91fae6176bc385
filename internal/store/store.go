// ABOUTME: Store interfaces and data types for postbox persistence
// ABOUTME: Defines User and Message records and the lookups the gateway needs

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// User is a registered account and the public key it authenticates with.
type User struct {
	ID        int64
	Name      string
	Bio       string
	PublicKey string // PEM or OpenSSH authorized-key text, as registered
	CreatedAt time.Time
}

// Message is a note delivered to a recipient's inbox.
type Message struct {
	ID        int64
	Recipient int64
	Sender    int64
	Body      string
	CreatedAt time.Time
}

// UserStore holds registered users. GetUser is the only method the login
// flow depends on.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsersByName(ctx context.Context, name string) ([]*User, error)
}

// MessageStore holds inbox messages.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id int64) (*Message, error)
	// ListMessagesByRecipient pages through an inbox in id order, returning
	// up to limit messages with an id greater than afterID.
	ListMessagesByRecipient(ctx context.Context, recipient, afterID int64, limit int) ([]*Message, error)
	DeleteMessage(ctx context.Context, id int64) error
}

// Store combines all persistence used by the gateway.
type Store interface {
	UserStore
	MessageStore

	// Ping checks that the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
