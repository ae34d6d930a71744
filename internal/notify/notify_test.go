package notify

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

type recordingMessenger struct {
	dms      map[string]string
	channels map[string]string
}

func newRecordingMessenger() *recordingMessenger {
	return &recordingMessenger{dms: map[string]string{}, channels: map[string]string{}}
}

func (m *recordingMessenger) SendDM(_ context.Context, userID, message string) error {
	m.dms[userID] = message
	return nil
}

func (m *recordingMessenger) SendChannel(_ context.Context, channelID, message string) error {
	m.channels[channelID] = message
	return nil
}

func setupRouter(t *testing.T) (*Router, *recordingMessenger, *store.Store) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "handlesync-notify-*")
	require.NoError(t, err)

	st, err := store.New(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		st.Close()
		os.RemoveAll(tmpDir)
	})

	messenger := newRecordingMessenger()
	return NewRouter(st, messenger, nil), messenger, st
}

func TestRouter_UnsetDestinationDrops(t *testing.T) {
	router, messenger, _ := setupRouter(t)

	require.NoError(t, router.Notify(context.Background(), "g1", "hello"))
	assert.Empty(t, messenger.dms)
	assert.Empty(t, messenger.channels)
}

func TestRouter_RoutesToDM(t *testing.T) {
	router, messenger, st := setupRouter(t)
	ctx := context.Background()

	_, err := st.UpdateGuildSettings(ctx, "g1", func(g *domain.GuildSettings) error {
		g.SetNotifyUser("u1")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, router.Notify(ctx, "g1", "renamed 3 labels"))
	assert.Equal(t, "renamed 3 labels", messenger.dms["u1"])
	assert.Empty(t, messenger.channels)
}

func TestRouter_ChannelReplacesDM(t *testing.T) {
	router, messenger, st := setupRouter(t)
	ctx := context.Background()

	_, err := st.UpdateGuildSettings(ctx, "g1", func(g *domain.GuildSettings) error {
		g.SetNotifyUser("u1")
		g.SetNotifyChannel("c1")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, router.Notify(ctx, "g1", "hello"))
	assert.Empty(t, messenger.dms)
	assert.Equal(t, "hello", messenger.channels["c1"])
}
