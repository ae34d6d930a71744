package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handlesync/handlesync-server/internal/directory"
	"github.com/handlesync/handlesync-server/internal/errors"
)

func TestProvisionGuild_EnsuresAllHumans(t *testing.T) {
	engine, dir, st := setupEngine(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		dir.AddMember("g1", member(fmt.Sprintf("m%d", i), fmt.Sprintf("user%d", i), fmt.Sprintf("Nick%d", i)))
	}
	dir.AddMember("g1", directory.Member{ID: "b1", Username: "robot", Bot: true})

	report := engine.ProvisionGuild(ctx, "g1")
	assert.Equal(t, 3, report.Members)
	assert.Equal(t, 3, report.Ensured)
	assert.False(t, report.FallbackUsed)
	assert.Empty(t, report.FirstErr)

	for i := 1; i <= 3; i++ {
		a, err := st.Assignment(ctx, "g1", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		assert.NotEmpty(t, a.SyncLabelID)
	}
	bot, err := st.Assignment(ctx, "g1", "b1")
	require.NoError(t, err)
	assert.True(t, bot.Empty())
}

func TestProvisionGuild_ColdCacheUsesFallback(t *testing.T) {
	engine, dir, _ := setupEngine(t)
	ctx := context.Background()

	dir.AddMember("g1", member("m1", "zo", "Zo"))
	dir.SetCacheCold("g1", true)

	report := engine.ProvisionGuild(ctx, "g1")
	assert.True(t, report.FallbackUsed)
	assert.Equal(t, 1, report.Ensured)
}

func TestProvisionGuild_EmptyGuild(t *testing.T) {
	engine, dir, _ := setupEngine(t)
	dir.AddGuild("g1")

	report := engine.ProvisionGuild(context.Background(), "g1")
	assert.Zero(t, report.Members)
	assert.Zero(t, report.Ensured)
}

func TestProvisionGuild_FirstErrorRememberedBatchContinues(t *testing.T) {
	engine, dir, _ := setupEngine(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		dir.AddMember("g1", member(fmt.Sprintf("m%d", i), fmt.Sprintf("user%d", i), fmt.Sprintf("Nick%d", i)))
	}
	dir.FailCreateLabel = func(_, name string) error {
		if name == "Nick2" {
			return errors.PermissionDenied("missing Manage Roles")
		}
		return nil
	}

	report := engine.ProvisionGuild(ctx, "g1")
	assert.Equal(t, 3, report.Members)
	assert.Equal(t, 2, report.Ensured)
	assert.Contains(t, report.FirstErr, "missing Manage Roles")
}

func TestProvisionGuild_ZeroEnsuredCarriesError(t *testing.T) {
	engine, dir, _ := setupEngine(t)
	ctx := context.Background()
	dir.AddMember("g1", member("m1", "zo", "Zo"))
	dir.FailCreateLabel = func(_, _ string) error {
		return errors.PermissionDenied("missing Manage Roles")
	}

	report := engine.ProvisionGuild(ctx, "g1")
	assert.Zero(t, report.Ensured)
	assert.NotEmpty(t, report.FirstErr, "zero-success runs must explain themselves")
}
