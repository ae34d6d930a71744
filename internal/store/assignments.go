package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/handlesync/handlesync-server/internal/domain"
)

// Assignment reads one member's record, normalizing any legacy on-disk
// shape. A missing record comes back as an empty Assignment, not an
// error: absence and emptiness are the same state.
func (s *Store) Assignment(ctx context.Context, guildID, userID string) (*domain.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assignment := &domain.Assignment{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(assignmentKey(guildID, userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := domain.DecodeAssignment(val)
			if err != nil {
				return err
			}
			assignment = decoded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get assignment %s/%s: %w", guildID, userID, err)
	}
	return assignment, nil
}

// UpdateAssignment applies fn to one member's record inside a single
// transaction: read, normalize, mutate, then write back — or delete the
// key entirely when fn leaves the record empty. fn returning an error
// aborts the transaction with nothing written.
func (s *Store) UpdateAssignment(ctx context.Context, guildID, userID string, fn func(*domain.Assignment) error) (*domain.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *domain.Assignment
	err := s.db.Update(func(txn *badger.Txn) error {
		key := assignmentKey(guildID, userID)
		assignment := &domain.Assignment{}

		item, err := txn.Get(key)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err == nil {
			err = item.Value(func(val []byte) error {
				decoded, decodeErr := domain.DecodeAssignment(val)
				if decodeErr != nil {
					return decodeErr
				}
				assignment = decoded
				return nil
			})
			if err != nil {
				return err
			}
		}

		if err := fn(assignment); err != nil {
			return err
		}

		if assignment.Empty() {
			result = assignment
			err := txn.Delete(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		data, err := json.Marshal(assignment)
		if err != nil {
			return fmt.Errorf("marshal assignment: %w", err)
		}
		result = assignment
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, fmt.Errorf("update assignment %s/%s: %w", guildID, userID, err)
	}
	return result, nil
}

// Assignments returns a snapshot of every record in a guild, keyed by
// user ID. Legacy shapes are normalized; records that fail to decode
// are skipped and logged rather than failing the whole listing.
func (s *Store) Assignments(ctx context.Context, guildID string) (map[string]*domain.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := assignmentPrefix(guildID)
	out := make(map[string]*domain.Assignment)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			userID := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				decoded, err := domain.DecodeAssignment(val)
				if err != nil {
					if s.logger != nil {
						s.logger.Warn("skipping undecodable assignment record",
							"guild_id", guildID, "user_id", userID, "error", err)
					}
					return nil
				}
				out[userID] = decoded
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list assignments %s: %w", guildID, err)
	}
	return out, nil
}
