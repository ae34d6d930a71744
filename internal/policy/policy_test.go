package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handlesync/handlesync-server/internal/domain"
	"github.com/handlesync/handlesync-server/internal/store"
)

func setupGuard(t *testing.T) (*Guard, *store.Store) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "handlesync-policy-*")
	require.NoError(t, err)

	st, err := store.New(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		st.Close()
		os.RemoveAll(tmpDir)
	})

	return NewGuard(st), st
}

func TestIsBlacklisted(t *testing.T) {
	guard, st := setupGuard(t)
	ctx := context.Background()

	_, err := st.UpdateGuildSettings(ctx, "g1", func(g *domain.GuildSettings) error {
		g.AddBlacklist("Moderator")
		return nil
	})
	require.NoError(t, err)

	hit, err := guard.IsBlacklisted(ctx, "g1", "moderator")
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = guard.IsBlacklisted(ctx, "g1", "Member")
	require.NoError(t, err)
	assert.False(t, hit)

	// A different guild's blacklist does not apply.
	hit, err = guard.IsBlacklisted(ctx, "g2", "Moderator")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCustomNameTakenByAnother(t *testing.T) {
	guard, st := setupGuard(t)
	ctx := context.Background()

	_, err := st.UpdateAssignment(ctx, "g1", "u1", func(a *domain.Assignment) error {
		a.CustomLabels = append(a.CustomLabels, domain.CustomLabel{LabelID: "r1", Name: "Handle"})
		return nil
	})
	require.NoError(t, err)

	taken, err := guard.CustomNameTakenByAnother(ctx, "g1", "u2", "handle")
	require.NoError(t, err)
	assert.True(t, taken, "another member holds the name, case-insensitively")

	taken, err = guard.CustomNameTakenByAnother(ctx, "g1", "u1", "Handle")
	require.NoError(t, err)
	assert.False(t, taken, "the requester's own labels are excluded")

	taken, err = guard.CustomNameTakenByAnother(ctx, "g1", "u2", "Fresh")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestCustomNameTakenByAnother_IgnoresSyncLabels(t *testing.T) {
	guard, st := setupGuard(t)
	ctx := context.Background()

	_, err := st.UpdateAssignment(ctx, "g1", "u1", func(a *domain.Assignment) error {
		a.SyncLabelID = "r1"
		return nil
	})
	require.NoError(t, err)

	taken, err := guard.CustomNameTakenByAnother(ctx, "g1", "u2", "anything")
	require.NoError(t, err)
	assert.False(t, taken)
}
