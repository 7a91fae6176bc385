// Package store provides persistent storage for the gateway using SQLite.
//
// # Architecture
//
// Two narrow interfaces describe what the rest of the gateway needs:
//
//   - UserStore: registered users and their public keys
//   - MessageStore: inbox messages addressed to a user
//
// Store composes both and adds Ping and Close. SQLiteStore implements all of
// them in a single struct.
//
// The login flow only ever calls UserStore.GetUser to load the key a user
// registered; it never writes.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Use ":memory:" for a throwaway database.
//
// # Error Handling
//
// Lookups of a missing user or message return ErrNotFound. All methods
// accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests and NewSQLiteStore(path) in t.TempDir()
// for scenario tests against real SQLite.
package store
