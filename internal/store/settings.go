package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/handlesync/handlesync-server/internal/domain"
)

// GuildSettings retrieves a guild's settings, or empty defaults when
// none have been stored.
func (s *Store) GuildSettings(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings := domain.NewGuildSettings()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(settingsKey(guildID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, settings)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get guild settings %s: %w", guildID, err)
	}
	return settings, nil
}

// UpdateGuildSettings applies fn to a guild's settings inside a single
// transaction. fn returning an error aborts with nothing written.
func (s *Store) UpdateGuildSettings(ctx context.Context, guildID string, fn func(*domain.GuildSettings) error) (*domain.GuildSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *domain.GuildSettings
	err := s.db.Update(func(txn *badger.Txn) error {
		key := settingsKey(guildID)
		settings := domain.NewGuildSettings()

		item, err := txn.Get(key)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err == nil {
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, settings)
			})
			if err != nil {
				return err
			}
		}

		if err := fn(settings); err != nil {
			return err
		}

		data, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("marshal guild settings: %w", err)
		}
		result = settings
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, fmt.Errorf("update guild settings %s: %w", guildID, err)
	}
	return result, nil
}
