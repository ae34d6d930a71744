// Package policy holds the checks consulted before any custom-label
// create: reserved-name blacklisting and cross-member handle
// uniqueness. Both are read-only over a store snapshot.
package policy

import (
	"context"
	"strings"

	"github.com/handlesync/handlesync-server/internal/store"
)

// Guard evaluates guild policy against the assignment store.
type Guard struct {
	store *store.Store
}

// NewGuard creates a policy guard backed by the given store.
func NewGuard(store *store.Store) *Guard {
	return &Guard{store: store}
}

// IsBlacklisted reports whether text matches a reserved name in the
// guild's blacklist, case-insensitively.
func (g *Guard) IsBlacklisted(ctx context.Context, guildID, text string) (bool, error) {
	settings, err := g.store.GuildSettings(ctx, guildID)
	if err != nil {
		return false, err
	}
	return settings.IsBlacklisted(text), nil
}

// CustomNameTakenByAnother reports whether any member other than
// excludeUserID already tracks a custom label with the same
// case-insensitive text.
func (g *Guard) CustomNameTakenByAnother(ctx context.Context, guildID, excludeUserID, text string) (bool, error) {
	assignments, err := g.store.Assignments(ctx, guildID)
	if err != nil {
		return false, err
	}
	for userID, assignment := range assignments {
		if userID == excludeUserID {
			continue
		}
		for _, custom := range assignment.CustomLabels {
			if strings.EqualFold(custom.Name, text) {
				return true, nil
			}
		}
	}
	return false, nil
}
