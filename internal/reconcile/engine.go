// Package reconcile compares the persisted assignment intent against
// the live remote directory and issues the minimal create / rename /
// add / remove operations to bring them back into agreement. Remote
// failures are contained per member and per operation: one broken
// record or one denied call never aborts a batch.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/handlesync/handlesync-server/internal/directory"
	"github.com/handlesync/handlesync-server/internal/domain"
	"github.com/handlesync/handlesync-server/internal/errors"
	"github.com/handlesync/handlesync-server/internal/names"
	"github.com/handlesync/handlesync-server/internal/ratelimit"
	"github.com/handlesync/handlesync-server/internal/store"
)

// Engine is the reconciliation core. One instance per process; safe for
// concurrent use. The sweep mutex serializes full sweeps only — command
// paths deliberately bypass it so a user is never parked behind a slow
// sweep (see SweepAll).
type Engine struct {
	store   *store.Store
	dir     directory.Directory
	pacer   *ratelimit.Pacer
	logger  *slog.Logger
	timeout time.Duration

	sweepMu sync.Mutex
}

// NewEngine creates the engine. timeout bounds every individual remote
// call; zero falls back to a conservative default.
func NewEngine(st *store.Store, dir directory.Directory, pacer *ratelimit.Pacer, timeout time.Duration, logger *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{
		store:   st,
		dir:     dir,
		pacer:   pacer,
		logger:  logger,
		timeout: timeout,
	}
}

// remoteCtx bounds one remote call. A hung call becomes a Timeout and
// the batch moves on.
func (e *Engine) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

// EnsureSyncLabel creates or repairs the member's display-name label:
// renames it when the display name drifted, recreates it when the
// remote label vanished, and re-attaches it when the member lost it.
// Idempotent; a second call with no intervening change issues no remote
// mutation. Returns nil (with the classified error) only when label
// creation itself failed — rename and attach failures are logged and
// the label is still returned.
func (e *Engine) EnsureSyncLabel(ctx context.Context, guildID string, m directory.Member) (*directory.Label, error) {
	assignment, err := e.store.Assignment(ctx, guildID, m.ID)
	if err != nil {
		return nil, err
	}
	desired := names.CanonicalIdentityName(m)

	lctx, cancel := e.remoteCtx(ctx)
	labels, err := e.dir.ListLabels(lctx, guildID)
	cancel()
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeOf(err), "list labels for guild %s", guildID)
	}
	inUse := directory.LabelNames(labels)

	var label *directory.Label
	if assignment.SyncLabelID != "" {
		for i := range labels {
			if labels[i].ID == assignment.SyncLabelID {
				label = &labels[i]
				break
			}
		}
	}

	if label == nil {
		// Missing or vanished remotely: provision a fresh label and
		// persist its ID, replacing any stale one.
		unique := names.Unique(desired, inUse, "")
		cctx, cancel := e.remoteCtx(ctx)
		created, err := e.dir.CreateLabel(cctx, guildID, unique)
		cancel()
		if err != nil {
			e.logger.Warn("could not create sync label",
				"guild_id", guildID, "user_id", m.ID, "error", err)
			return nil, err
		}
		label = created

		if _, err := e.store.UpdateAssignment(ctx, guildID, m.ID, func(a *domain.Assignment) error {
			a.SyncLabelID = created.ID
			return nil
		}); err != nil {
			return nil, err
		}
	} else if label.Name != desired {
		unique := names.Unique(desired, inUse, label.Name)
		rctx, cancel := e.remoteCtx(ctx)
		err := e.dir.RenameLabel(rctx, guildID, label.ID, unique)
		cancel()
		if err != nil {
			// Leave the label as-is; the next pass retries.
			e.logger.Warn("could not rename sync label",
				"guild_id", guildID, "label_id", label.ID, "error", err)
		} else {
			label.Name = unique
		}
	}

	e.ensureMembership(ctx, guildID, m.ID, label.ID)
	return label, nil
}

// ensureMembership attaches the label to the member when missing.
// Best-effort: failures are logged, never returned.
func (e *Engine) ensureMembership(ctx context.Context, guildID, memberID, labelID string) {
	hctx, cancel := e.remoteCtx(ctx)
	held, err := e.dir.MemberHasLabel(hctx, guildID, memberID, labelID)
	cancel()
	if err != nil {
		e.logger.Warn("could not check label membership",
			"guild_id", guildID, "user_id", memberID, "label_id", labelID, "error", err)
		return
	}
	if held {
		return
	}

	actx, cancel := e.remoteCtx(ctx)
	err = e.dir.AddLabelToMember(actx, guildID, memberID, labelID)
	cancel()
	if err != nil {
		e.logger.Warn("could not attach label",
			"guild_id", guildID, "user_id", memberID, "label_id", labelID, "error", err)
	}
}

// EnsureCustomLabel creates (or repairs) a custom handle label for the
// member. Validation failures — blacklisted names, including numbered
// variants of blacklisted names — are returned before any mutation.
// Cross-member handle uniqueness is the caller's check; this operation
// only guards the requester's own namespace.
func (e *Engine) EnsureCustomLabel(ctx context.Context, guildID string, m directory.Member, requested string) (*directory.Label, error) {
	name := names.CanonicalCustomName(requested, m)

	settings, err := e.store.GuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if settings.IsBlacklisted(name) {
		return nil, errors.Validationf("the name %q is reserved on this server", name)
	}

	assignment, err := e.store.Assignment(ctx, guildID, m.ID)
	if err != nil {
		return nil, err
	}

	// An entry with this exact name already exists: reuse it if the
	// remote label survived, otherwise fall through and recreate.
	staleID := ""
	if entry := assignment.CustomLabelNamed(name); entry != nil {
		gctx, cancel := e.remoteCtx(ctx)
		label, err := e.dir.GetLabel(gctx, guildID, entry.LabelID)
		cancel()
		switch {
		case err == nil:
			e.ensureMembership(ctx, guildID, m.ID, label.ID)
			return label, nil
		case errors.Is(err, errors.ErrNotFound):
			staleID = entry.LabelID
		default:
			return nil, err
		}
	}

	lctx, cancel := e.remoteCtx(ctx)
	labels, err := e.dir.ListLabels(lctx, guildID)
	cancel()
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeOf(err), "list labels for guild %s", guildID)
	}

	unique := names.Unique(name, directory.LabelNames(labels), "")
	// A numbered variant must not slip past the blacklist.
	if settings.IsBlacklisted(unique) || settings.IsBlacklisted(names.BaseName(unique)) {
		return nil, errors.Validationf("the name %q is reserved on this server", names.BaseName(unique))
	}

	cctx, cancel := e.remoteCtx(ctx)
	created, err := e.dir.CreateLabel(cctx, guildID, unique)
	cancel()
	if err != nil {
		e.logger.Warn("could not create custom label",
			"guild_id", guildID, "user_id", m.ID, "name", unique, "error", err)
		return nil, err
	}

	// State is updated only after the create succeeded.
	if _, err := e.store.UpdateAssignment(ctx, guildID, m.ID, func(a *domain.Assignment) error {
		if staleID != "" {
			for i := range a.CustomLabels {
				if a.CustomLabels[i].LabelID == staleID {
					a.CustomLabels[i] = domain.CustomLabel{LabelID: created.ID, Name: unique}
					return nil
				}
			}
		}
		a.CustomLabels = append(a.CustomLabels, domain.CustomLabel{LabelID: created.ID, Name: unique})
		return nil
	}); err != nil {
		return nil, err
	}

	e.ensureMembership(ctx, guildID, m.ID, created.ID)
	return created, nil
}

// RemoveCustomLabel detaches and untracks the custom handle with the
// exact given name. The sync label is never touched. NotFound when the
// member has no such tracked handle.
func (e *Engine) RemoveCustomLabel(ctx context.Context, guildID string, m directory.Member, name string) error {
	assignment, err := e.store.Assignment(ctx, guildID, m.ID)
	if err != nil {
		return err
	}
	entry := assignment.CustomLabelNamed(name)
	if entry == nil {
		return errors.NotFoundf("no custom handle named %q", name)
	}

	rctx, cancel := e.remoteCtx(ctx)
	err = e.dir.RemoveLabelFromMember(rctx, guildID, m.ID, entry.LabelID)
	cancel()
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		e.logger.Warn("could not detach custom label",
			"guild_id", guildID, "user_id", m.ID, "label_id", entry.LabelID, "error", err)
	}

	_, err = e.store.UpdateAssignment(ctx, guildID, m.ID, func(a *domain.Assignment) error {
		a.RemoveCustomLabel(name)
		return nil
	})
	return err
}

// ClearCustomLabels detaches and untracks every custom handle the
// member has, returning how many were tracked. The sync label is never
// touched, and no other member's labels are affected.
func (e *Engine) ClearCustomLabels(ctx context.Context, guildID string, m directory.Member) (int, error) {
	assignment, err := e.store.Assignment(ctx, guildID, m.ID)
	if err != nil {
		return 0, err
	}
	if len(assignment.CustomLabels) == 0 {
		return 0, nil
	}

	for _, entry := range assignment.CustomLabels {
		rctx, cancel := e.remoteCtx(ctx)
		err := e.dir.RemoveLabelFromMember(rctx, guildID, m.ID, entry.LabelID)
		cancel()
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			e.logger.Warn("could not detach custom label",
				"guild_id", guildID, "user_id", m.ID, "label_id", entry.LabelID, "error", err)
		}
	}

	count := len(assignment.CustomLabels)
	_, err = e.store.UpdateAssignment(ctx, guildID, m.ID, func(a *domain.Assignment) error {
		a.CustomLabels = nil
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// HandleMemberJoin provisions the sync label for a newly joined member.
// Bots are ignored. Errors are logged, not returned: a join event has
// no caller to report to.
func (e *Engine) HandleMemberJoin(ctx context.Context, guildID string, m directory.Member) {
	if m.Bot {
		return
	}
	if _, err := e.EnsureSyncLabel(ctx, guildID, m); err != nil {
		e.logger.Warn("could not provision sync label on join",
			"guild_id", guildID, "user_id", m.ID, "error", err)
	}
}
