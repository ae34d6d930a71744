package reconcile

import (
	"context"
	"time"

	"github.com/handlesync/handlesync-server/internal/directory"
	"github.com/handlesync/handlesync-server/internal/domain"
	"github.com/handlesync/handlesync-server/internal/errors"
	"github.com/handlesync/handlesync-server/internal/names"
)

// SweepStats summarizes one guild's repair pass.
type SweepStats struct {
	Records  int    `json:"records"`  // records with a sync label examined
	Renamed  int    `json:"renamed"`  // labels whose text was repaired
	Reattach int    `json:"reattach"` // memberships re-added
	Cleared  int    `json:"cleared"`  // stale sync IDs dropped (label vanished)
	Errors   int    `json:"errors"`   // per-member failures contained
	FirstErr string `json:"first_err,omitempty"`
}

func (s *SweepStats) recordErr(err error) {
	s.Errors++
	if s.FirstErr == "" {
		s.FirstErr = err.Error()
	}
}

// SweepReport summarizes one full pass over every guild.
type SweepReport struct {
	Started  time.Time             `json:"started"`
	Finished time.Time             `json:"finished"`
	Guilds   map[string]SweepStats `json:"guilds"`
	FirstErr string                `json:"first_err,omitempty"`
}

// ReconcileGuild repairs every record in a guild that has a sync label:
// renames drifted texts, re-adds lost memberships, and clears IDs whose
// remote label vanished. It never creates a label — provisioning is the
// admin's explicit ProvisionGuild call. Per-member failures are
// contained in the returned stats.
func (e *Engine) ReconcileGuild(ctx context.Context, guildID string) (SweepStats, error) {
	var stats SweepStats

	assignments, err := e.store.Assignments(ctx, guildID)
	if err != nil {
		return stats, err
	}
	if len(assignments) == 0 {
		return stats, nil
	}

	lctx, cancel := e.remoteCtx(ctx)
	labels, err := e.dir.ListLabels(lctx, guildID)
	cancel()
	if err != nil {
		return stats, errors.Wrapf(err, errors.CodeOf(err), "list labels for guild %s", guildID)
	}

	// The in-use name set is threaded through the pass: each successful
	// rename updates it so later collision checks see fresh state.
	inUse := directory.LabelNames(labels)
	byID := make(map[string]*directory.Label, len(labels))
	for i := range labels {
		byID[labels[i].ID] = &labels[i]
	}

	for userID, assignment := range assignments {
		if assignment.SyncLabelID == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Records++

		if err := e.pacer.Wait(ctx, guildID); err != nil {
			return stats, err
		}

		label, ok := byID[assignment.SyncLabelID]
		if !ok {
			// Label deleted remotely: drop the stale ID; the record is
			// pruned automatically when nothing else remains.
			if _, err := e.store.UpdateAssignment(ctx, guildID, userID, func(a *domain.Assignment) error {
				a.SyncLabelID = ""
				return nil
			}); err != nil {
				stats.recordErr(err)
				continue
			}
			stats.Cleared++
			continue
		}

		mctx, cancel := e.remoteCtx(ctx)
		member, err := e.dir.GetMember(mctx, guildID, userID)
		cancel()
		if errors.Is(err, errors.ErrNotFound) {
			// Member left; keep the record for when they return.
			continue
		}
		if err != nil {
			stats.recordErr(err)
			continue
		}

		desired := names.CanonicalIdentityName(*member)
		if label.Name != desired {
			unique := names.Unique(desired, inUse, label.Name)
			rctx, cancel := e.remoteCtx(ctx)
			err := e.dir.RenameLabel(rctx, guildID, label.ID, unique)
			cancel()
			if err != nil {
				e.logger.Warn("sweep rename failed",
					"guild_id", guildID, "label_id", label.ID, "error", err)
				stats.recordErr(err)
			} else {
				delete(inUse, label.Name)
				inUse[unique] = struct{}{}
				label.Name = unique
				stats.Renamed++
			}
		}

		hctx, cancel := e.remoteCtx(ctx)
		held, err := e.dir.MemberHasLabel(hctx, guildID, userID, label.ID)
		cancel()
		if err != nil {
			stats.recordErr(err)
			continue
		}
		if !held {
			actx, cancel := e.remoteCtx(ctx)
			err := e.dir.AddLabelToMember(actx, guildID, userID, label.ID)
			cancel()
			if err != nil {
				e.logger.Warn("sweep reattach failed",
					"guild_id", guildID, "user_id", userID, "error", err)
				stats.recordErr(err)
			} else {
				stats.Reattach++
			}
		}
	}

	return stats, nil
}

// SweepAll runs ReconcileGuild over every guild, serialized behind the
// engine-wide sweep mutex so at most one full sweep is in flight.
// Per-guild failures are contained; the report carries the first one.
func (e *Engine) SweepAll(ctx context.Context) SweepReport {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	report := SweepReport{
		Started: time.Now(),
		Guilds:  make(map[string]SweepStats),
	}

	gctx, cancel := e.remoteCtx(ctx)
	guilds, err := e.dir.ListGuilds(gctx)
	cancel()
	if err != nil {
		report.FirstErr = err.Error()
		report.Finished = time.Now()
		return report
	}

	for _, guildID := range guilds {
		if ctx.Err() != nil {
			break
		}
		stats, err := e.ReconcileGuild(ctx, guildID)
		if err != nil {
			e.logger.Error("sweep failed for guild", "guild_id", guildID, "error", err)
			stats.recordErr(err)
		}
		report.Guilds[guildID] = stats
		if report.FirstErr == "" && stats.FirstErr != "" {
			report.FirstErr = stats.FirstErr
		}
	}

	report.Finished = time.Now()
	return report
}
