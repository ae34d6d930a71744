package reconcile

import (
	"context"
)

// ProvisionReport is the outcome of an admin full-provision pass. It is
// an explicit return value — there is no engine-scratch "last error"
// state to leak between requests.
type ProvisionReport struct {
	Members      int    // non-bot members enumerated
	Ensured      int    // members whose sync label was produced
	FallbackUsed bool   // primary listing was empty, paged path used
	FirstErr     string // first contained failure, for user reporting
}

// ProvisionGuild ensures every non-bot member of the guild has a sync
// label, creating labels where the periodic sweep would only repair.
// Member enumeration tries the primary listing first and falls back to
// the paged path when it comes back empty. Runs without the sweep
// mutex: an admin command must not block behind a slow sweep, and a
// concurrent sweep racing it is harmless (both paths are idempotent and
// the store transaction is the consistency boundary).
func (e *Engine) ProvisionGuild(ctx context.Context, guildID string) ProvisionReport {
	var report ProvisionReport

	lctx, cancel := e.remoteCtx(ctx)
	members, err := e.dir.ListMembers(lctx, guildID)
	cancel()
	if err != nil {
		e.logger.Warn("primary member listing failed", "guild_id", guildID, "error", err)
		if report.FirstErr == "" {
			report.FirstErr = err.Error()
		}
	}

	if len(members) == 0 {
		fctx, cancel := e.remoteCtx(ctx)
		fallback, err := e.dir.FetchMembersFallback(fctx, guildID)
		cancel()
		if err != nil {
			e.logger.Warn("fallback member listing failed", "guild_id", guildID, "error", err)
			if report.FirstErr == "" {
				report.FirstErr = err.Error()
			}
		}
		if len(fallback) > 0 {
			members = fallback
			report.FallbackUsed = true
		}
	}

	for _, m := range members {
		if m.Bot {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		report.Members++

		if err := e.pacer.Wait(ctx, guildID); err != nil {
			break
		}

		label, err := e.EnsureSyncLabel(ctx, guildID, m)
		if err != nil {
			e.logger.Warn("provision failed for member",
				"guild_id", guildID, "user_id", m.ID, "error", err)
			if report.FirstErr == "" {
				report.FirstErr = err.Error()
			}
			continue
		}
		if label != nil {
			report.Ensured++
		}
	}

	return report
}
