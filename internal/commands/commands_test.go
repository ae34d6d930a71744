package commands

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handlesync/handlesync-server/internal/directory"
	"github.com/handlesync/handlesync-server/internal/directory/memorydir"
	"github.com/handlesync/handlesync-server/internal/policy"
	"github.com/handlesync/handlesync-server/internal/ratelimit"
	"github.com/handlesync/handlesync-server/internal/reconcile"
	"github.com/handlesync/handlesync-server/internal/store"
	"github.com/handlesync/handlesync-server/internal/validation"
)

type recordingSink struct {
	messages []string
}

func (r *recordingSink) Notify(_ context.Context, _ string, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func setupHandler(t *testing.T) (*Handler, *memorydir.Dir, *recordingSink) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	st, err := store.New(filepath.Join(t.TempDir(), "badger"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	dir := memorydir.New()
	dir.AddGuild("g1")

	pacer := ratelimit.New(10000, 10000)
	engine := reconcile.NewEngine(st, dir, pacer, 5*time.Second, logger)
	sink := &recordingSink{}

	h := NewHandler(engine, st, policy.NewGuard(st), validation.New(), sink, logger)
	return h, dir, sink
}

func member(id, username, nickname string) directory.Member {
	return directory.Member{ID: id, Username: username, Nickname: nickname}
}

func TestDispatchSetCreatesBothLabels(t *testing.T) {
	h, dir, sink := setupHandler(t)
	m := member("u1", "alice", "Alice")
	dir.AddMember("g1", m)

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, Command: "set", Args: "Archivist",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Archivist")

	held := dir.HeldLabels("g1", "u1")
	assert.Len(t, held, 2)
	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "Archivist")
}

func TestDispatchSetRejectsEmptyAndOverlong(t *testing.T) {
	h, dir, _ := setupHandler(t)
	m := member("u1", "alice", "")
	dir.AddMember("g1", m)

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, Command: "set", Args: "   ",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "100 characters")

	out, err = h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, Command: "set", Args: strings.Repeat("x", 101),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "100 characters")

	assert.Equal(t, 0, dir.CreateCalls())
}

func TestDispatchSetRejectsNameHeldByAnotherMember(t *testing.T) {
	h, dir, _ := setupHandler(t)
	a := member("u1", "alice", "")
	b := member("u2", "bob", "")
	dir.AddMember("g1", a)
	dir.AddMember("g1", b)

	_, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: a, Command: "set", Args: "Archivist",
	})
	require.NoError(t, err)

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: b, Command: "set", Args: "archivist",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "already in use")
	assert.Empty(t, dir.HeldLabels("g1", "u2"))
}

func TestDispatchSetSurfacesBlacklistRejection(t *testing.T) {
	h, dir, _ := setupHandler(t)
	m := member("u1", "alice", "")
	dir.AddMember("g1", m)

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, IsAdmin: true, Command: "blacklist", Args: "add Admin",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "reserved")

	out, err = h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, Command: "set", Args: "ADMIN",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "reserved")
}

func TestDispatchSetReportsCreateFailureWithHint(t *testing.T) {
	h, dir, _ := setupHandler(t)
	m := member("u1", "alice", "")
	dir.AddMember("g1", m)
	dir.FailCreateLabel = func(string, string) error {
		return errors.New("missing permissions")
	}

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, Command: "set", Args: "Archivist",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Manage Roles")
}

func TestDispatchRemoveAndClear(t *testing.T) {
	h, dir, _ := setupHandler(t)
	m := member("u1", "alice", "")
	dir.AddMember("g1", m)

	_, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, Command: "set", Args: "Archivist",
	})
	require.NoError(t, err)

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, Command: "remove", Args: "Nope",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "don't have")

	out, err = h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, Command: "remove", Args: "Archivist",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Removed")

	out, err = h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: m, Command: "clear",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "don't have any")
}

func TestDispatchAdminGate(t *testing.T) {
	h, dir, _ := setupHandler(t)
	m := member("u1", "alice", "")
	dir.AddMember("g1", m)

	for _, verb := range []string{"sync", "logdm", "logchannel", "blacklist"} {
		out, err := h.Dispatch(context.Background(), Request{
			GuildID: "g1", Member: m, Command: verb,
		})
		require.NoError(t, err)
		assert.Contains(t, out, "Manage Roles", "verb %s", verb)
	}
}

func TestDispatchSyncEnsuresMembersAndNotifies(t *testing.T) {
	h, dir, sink := setupHandler(t)
	admin := member("u1", "alice", "")
	dir.AddMember("g1", admin)
	dir.AddMember("g1", member("u2", "bob", ""))
	dir.AddMember("g1", directory.Member{ID: "u3", Username: "beep", Bot: true})

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: admin, IsAdmin: true, Command: "sync",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 members")
	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "full sync")
}

func TestDispatchSyncReportsEmptyMemberList(t *testing.T) {
	h, dir, _ := setupHandler(t)
	admin := member("u1", "alice", "")
	dir.AddGuild("g2")

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g2", Member: admin, IsAdmin: true, Command: "sync",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "member list")
}

func TestDispatchSyncZeroEnsuredIncludesHint(t *testing.T) {
	h, dir, _ := setupHandler(t)
	admin := member("u1", "alice", "")
	dir.AddMember("g1", admin)
	dir.FailCreateLabel = func(string, string) error {
		return errors.New("missing permissions")
	}

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: admin, IsAdmin: true, Command: "sync",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "No labels were produced")
	assert.Contains(t, out, "Manage Roles")
}

func TestDispatchNotificationRouting(t *testing.T) {
	h, dir, _ := setupHandler(t)
	admin := member("u1", "alice", "")
	dir.AddMember("g1", admin)

	out, err := h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: admin, IsAdmin: true, Command: "logdm",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "DMed")

	out, err = h.Dispatch(context.Background(), Request{
		GuildID: "g1", Member: admin, IsAdmin: true, Command: "logchannel", Args: "c42",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "c42")
}

func TestDispatchBlacklistLifecycle(t *testing.T) {
	h, dir, _ := setupHandler(t)
	admin := member("u1", "alice", "")
	dir.AddMember("g1", admin)
	ctx := context.Background()

	out, err := h.Dispatch(ctx, Request{GuildID: "g1", Member: admin, IsAdmin: true, Command: "blacklist", Args: "list"})
	require.NoError(t, err)
	assert.Contains(t, out, "No names")

	_, err = h.Dispatch(ctx, Request{GuildID: "g1", Member: admin, IsAdmin: true, Command: "blacklist", Args: "add Staff"})
	require.NoError(t, err)

	out, err = h.Dispatch(ctx, Request{GuildID: "g1", Member: admin, IsAdmin: true, Command: "blacklist", Args: "add staff"})
	require.NoError(t, err)
	assert.Contains(t, out, "already")

	out, err = h.Dispatch(ctx, Request{GuildID: "g1", Member: admin, IsAdmin: true, Command: "blacklist", Args: "list"})
	require.NoError(t, err)
	assert.Contains(t, out, "Staff")

	out, err = h.Dispatch(ctx, Request{GuildID: "g1", Member: admin, IsAdmin: true, Command: "blacklist", Args: "remove Staff"})
	require.NoError(t, err)
	assert.Contains(t, out, "no longer")

	out, err = h.Dispatch(ctx, Request{GuildID: "g1", Member: admin, IsAdmin: true, Command: "blacklist", Args: "remove Staff"})
	require.NoError(t, err)
	assert.Contains(t, out, "was not")
}

func TestDispatchHelpAndUnknown(t *testing.T) {
	h, _, _ := setupHandler(t)
	m := member("u1", "alice", "")

	out, err := h.Dispatch(context.Background(), Request{GuildID: "g1", Member: m, Command: "help"})
	require.NoError(t, err)
	assert.Contains(t, out, "set <name>")

	out, err = h.Dispatch(context.Background(), Request{GuildID: "g1", Member: m, Command: "dance"})
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown command")
}
