// Package commands turns chat commands into engine operations and
// human-readable outcome strings. The platform adapter parses raw
// messages into Requests and posts the returned text; permission
// elevation is checked here, at the boundary, never in the engine.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/handlesync/handlesync-server/internal/directory"
	"github.com/handlesync/handlesync-server/internal/domain"
	"github.com/handlesync/handlesync-server/internal/errors"
	"github.com/handlesync/handlesync-server/internal/names"
	"github.com/handlesync/handlesync-server/internal/notify"
	"github.com/handlesync/handlesync-server/internal/policy"
	"github.com/handlesync/handlesync-server/internal/reconcile"
	"github.com/handlesync/handlesync-server/internal/store"
	"github.com/handlesync/handlesync-server/internal/validation"
)

// Request is one parsed command invocation.
type Request struct {
	GuildID string
	Member  directory.Member
	IsAdmin bool
	Command string
	Args    string
}

// Handler dispatches commands against the engine and store.
type Handler struct {
	engine   *reconcile.Engine
	store    *store.Store
	guard    *policy.Guard
	validate *validation.Validator
	sink     notify.Sink
	logger   *slog.Logger
}

// NewHandler wires the command layer.
func NewHandler(engine *reconcile.Engine, st *store.Store, guard *policy.Guard, validate *validation.Validator, sink notify.Sink, logger *slog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		store:    st,
		guard:    guard,
		validate: validate,
		sink:     sink,
		logger:   logger,
	}
}

const permissionHint = "Check that the bot has **Manage Roles** and that its role sits above the labels it creates in the server's role list."

type setRequest struct {
	Name string `validate:"required,max=100"`
}

// Dispatch runs one command and returns the outcome text shown to the
// invoking user. The returned error is reserved for unexpected
// failures; user-level rejections come back as friendly text.
func (h *Handler) Dispatch(ctx context.Context, req Request) (string, error) {
	verb := strings.ToLower(strings.TrimSpace(req.Command))

	if adminOnly(verb) && !req.IsAdmin {
		return "You need the **Manage Roles** permission to use that command.", nil
	}

	switch verb {
	case "set":
		return h.set(ctx, req)
	case "clear":
		return h.clear(ctx, req)
	case "remove":
		return h.remove(ctx, req)
	case "sync":
		return h.sync(ctx, req)
	case "logdm":
		return h.logDM(ctx, req)
	case "logchannel":
		return h.logChannel(ctx, req)
	case "blacklist":
		return h.blacklist(ctx, req)
	case "help", "":
		return helpText, nil
	default:
		return fmt.Sprintf("Unknown command %q. Try `help`.", req.Command), nil
	}
}

func adminOnly(verb string) bool {
	switch verb {
	case "sync", "logdm", "logchannel", "blacklist":
		return true
	}
	return false
}

func (h *Handler) set(ctx context.Context, req Request) (string, error) {
	input := setRequest{Name: strings.TrimSpace(req.Args)}
	if err := h.validate.Validate(input); err != nil {
		if errors.Is(err, errors.ErrValidation) {
			return "Please provide a name of 100 characters or fewer.", nil
		}
		return "", err
	}

	name := names.CanonicalCustomName(input.Name, req.Member)
	taken, err := h.guard.CustomNameTakenByAnother(ctx, req.GuildID, req.Member.ID, name)
	if err != nil {
		return "", err
	}
	if taken {
		return fmt.Sprintf("The handle **%s** is already in use by another member.", name), nil
	}

	syncLabel, err := h.engine.EnsureSyncLabel(ctx, req.GuildID, req.Member)
	if err != nil {
		h.logger.Warn("set: sync label failed",
			"guild_id", req.GuildID, "user_id", req.Member.ID, "error", err)
		return "I couldn't create or update your display-name label. " + permissionHint, nil
	}

	customLabel, err := h.engine.EnsureCustomLabel(ctx, req.GuildID, req.Member, input.Name)
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			return err.Error(), nil
		}
		h.logger.Warn("set: custom label failed",
			"guild_id", req.GuildID, "user_id", req.Member.ID, "error", err)
		return "I couldn't create your custom handle. " + permissionHint, nil
	}

	h.notifyAdmins(ctx, req.GuildID,
		fmt.Sprintf("%s set custom handle %q", req.Member.DisplayName(), customLabel.Name))

	return fmt.Sprintf("You now have **%s** (from your display name) and **%s** (custom handle).",
		syncLabel.Name, customLabel.Name), nil
}

func (h *Handler) clear(ctx context.Context, req Request) (string, error) {
	count, err := h.engine.ClearCustomLabels(ctx, req.GuildID, req.Member)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "You don't have any custom handles in this server.", nil
	}
	return fmt.Sprintf("Removed %d custom handle(s). Your display-name label is unchanged and will keep syncing.", count), nil
}

func (h *Handler) remove(ctx context.Context, req Request) (string, error) {
	name := strings.TrimSpace(req.Args)
	if name == "" {
		return "Usage: `remove <name>`.", nil
	}

	err := h.engine.RemoveCustomLabel(ctx, req.GuildID, req.Member, name)
	if errors.Is(err, errors.ErrNotFound) {
		return fmt.Sprintf("You don't have a custom handle named **%s**.", name), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed your custom handle **%s**.", name), nil
}

func (h *Handler) sync(ctx context.Context, req Request) (string, error) {
	report := h.engine.ProvisionGuild(ctx, req.GuildID)

	if report.Members == 0 {
		msg := "Could not get the member list (both the cache and the fallback came back empty). " +
			"Make sure the members privileged intent is enabled, then restart the bot."
		if report.FirstErr != "" {
			msg += fmt.Sprintf(" Last error: `%s`", report.FirstErr)
		}
		return msg, nil
	}

	msg := fmt.Sprintf("Sync complete. Display-name labels ensured for %d of %d members (custom handles left unchanged).",
		report.Ensured, report.Members)
	if report.FallbackUsed {
		msg += " (used the fallback member listing)"
	}
	if report.Ensured == 0 {
		msg += " — No labels were produced. " + permissionHint
		if report.FirstErr != "" {
			msg += fmt.Sprintf(" Last error: `%s`", report.FirstErr)
		}
	}

	h.notifyAdmins(ctx, req.GuildID,
		fmt.Sprintf("full sync by %s: %d/%d members ensured", req.Member.DisplayName(), report.Ensured, report.Members))

	return msg, nil
}

func (h *Handler) logDM(ctx context.Context, req Request) (string, error) {
	_, err := h.store.UpdateGuildSettings(ctx, req.GuildID, func(g *domain.GuildSettings) error {
		g.SetNotifyUser(req.Member.ID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return "Change summaries will be DMed to you.", nil
}

func (h *Handler) logChannel(ctx context.Context, req Request) (string, error) {
	channelID := strings.TrimSpace(req.Args)
	if channelID == "" {
		return "Usage: `logchannel <channel-id>`.", nil
	}

	_, err := h.store.UpdateGuildSettings(ctx, req.GuildID, func(g *domain.GuildSettings) error {
		g.SetNotifyChannel(channelID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Change summaries will be posted to <#%s>.", channelID), nil
}

func (h *Handler) blacklist(ctx context.Context, req Request) (string, error) {
	sub, rest, _ := strings.Cut(strings.TrimSpace(req.Args), " ")
	name := strings.TrimSpace(rest)

	switch strings.ToLower(sub) {
	case "add":
		if name == "" {
			return "Usage: `blacklist add <name>`.", nil
		}
		added := false
		_, err := h.store.UpdateGuildSettings(ctx, req.GuildID, func(g *domain.GuildSettings) error {
			added = g.AddBlacklist(name)
			return nil
		})
		if err != nil {
			return "", err
		}
		if !added {
			return fmt.Sprintf("**%s** is already reserved.", name), nil
		}
		return fmt.Sprintf("**%s** is now reserved and cannot be used as a handle.", name), nil

	case "remove":
		if name == "" {
			return "Usage: `blacklist remove <name>`.", nil
		}
		removed := false
		_, err := h.store.UpdateGuildSettings(ctx, req.GuildID, func(g *domain.GuildSettings) error {
			removed = g.RemoveBlacklist(name)
			return nil
		})
		if err != nil {
			return "", err
		}
		if !removed {
			return fmt.Sprintf("**%s** was not on the reserved list.", name), nil
		}
		return fmt.Sprintf("**%s** is no longer reserved.", name), nil

	case "list", "":
		settings, err := h.store.GuildSettings(ctx, req.GuildID)
		if err != nil {
			return "", err
		}
		if len(settings.Blacklist) == 0 {
			return "No names are reserved on this server.", nil
		}
		return "Reserved names: " + strings.Join(settings.Blacklist, ", "), nil

	default:
		return "Usage: `blacklist [add|remove|list] <name>`.", nil
	}
}

func (h *Handler) notifyAdmins(ctx context.Context, guildID, message string) {
	if err := h.sink.Notify(ctx, guildID, message); err != nil {
		h.logger.Warn("notification delivery failed", "guild_id", guildID, "error", err)
	}
}

const helpText = "Commands:\n" +
	"`set <name>` — add a custom handle label for yourself\n" +
	"`remove <name>` — remove one of your custom handles\n" +
	"`clear` — remove all of your custom handles\n" +
	"`sync` — (admin) ensure every member has a display-name label\n" +
	"`logdm` — (admin) DM change summaries to you\n" +
	"`logchannel <id>` — (admin) post change summaries to a channel\n" +
	"`blacklist [add|remove|list] <name>` — (admin) manage reserved names\n" +
	"`help` — this text"
