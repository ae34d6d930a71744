// Package store persists assignment records and guild settings in a
// Badger key-value database. Every mutation runs as a single
// read-modify-write transaction scoped to one guild key; transactions
// are never held across remote calls.
package store

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// New opens (or creates) the database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Survive crashes without losing label IDs
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("assignment database opened", "path", path)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing assignment database")
	}
	return s.db.Close()
}

// Key layout. Guild and user IDs are opaque platform snowflakes and
// never contain ':'.
func assignmentKey(guildID, userID string) []byte {
	return []byte("assign:" + guildID + ":" + userID)
}

func assignmentPrefix(guildID string) []byte {
	return []byte("assign:" + guildID + ":")
}

func settingsKey(guildID string) []byte {
	return []byte("guildcfg:" + guildID)
}
