// Package notify delivers human-readable change summaries to the
// destination each guild's admins configured: a DM target, a channel,
// or nowhere at all.
package notify

import (
	"context"
	"log/slog"

	"github.com/handlesync/handlesync-server/internal/store"
)

// Sink receives a summary for a guild. Implementations must tolerate
// being called concurrently.
type Sink interface {
	Notify(ctx context.Context, guildID, message string) error
}

// Messenger is the platform transport the router forwards to. The
// platform adapter owns the actual delivery.
type Messenger interface {
	SendDM(ctx context.Context, userID, message string) error
	SendChannel(ctx context.Context, channelID, message string) error
}

// Router reads each guild's configured destination and forwards the
// message accordingly. An unset destination drops the message silently.
type Router struct {
	store     *store.Store
	messenger Messenger
	logger    *slog.Logger
}

// NewRouter creates a router over the given store and transport.
func NewRouter(st *store.Store, messenger Messenger, logger *slog.Logger) *Router {
	return &Router{store: st, messenger: messenger, logger: logger}
}

// Notify implements Sink.
func (r *Router) Notify(ctx context.Context, guildID, message string) error {
	settings, err := r.store.GuildSettings(ctx, guildID)
	if err != nil {
		return err
	}

	switch {
	case settings.NotifyUserID != "":
		return r.messenger.SendDM(ctx, settings.NotifyUserID, message)
	case settings.NotifyChannelID != "":
		return r.messenger.SendChannel(ctx, settings.NotifyChannelID, message)
	default:
		return nil
	}
}

// NoopSink discards every message. Used when no transport is wired.
type NoopSink struct{}

// Notify implements Sink as a no-op.
func (NoopSink) Notify(context.Context, string, string) error { return nil }

// NewNoopSink creates a discarding sink.
func NewNoopSink() Sink { return NoopSink{} }
