// Package directory defines the boundary to the remote platform's role
// and member directory. Implementations classify platform failures into
// the internal/errors taxonomy; the reconciliation engine treats every
// call here as fallible and slow.
package directory

import "context"

// Member is one guild member as the remote platform reports it.
type Member struct {
	ID       string
	Username string
	Nickname string
	Bot      bool
}

// DisplayName is the member's server-facing name: nickname when set,
// else username.
func (m Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.Username
}

// Label is one named, guild-scoped taggable object (a role).
type Label struct {
	ID   string
	Name string
}

// Directory is the remote role/member directory. All operations are
// guild-scoped and may fail with PermissionDenied, RateLimited,
// NotFound, or Timeout from internal/errors.
type Directory interface {
	// ListGuilds enumerates the guilds this installation serves.
	ListGuilds(ctx context.Context) ([]string, error)

	// CreateLabel creates a new label with the given text.
	CreateLabel(ctx context.Context, guildID, name string) (*Label, error)

	// RenameLabel changes an existing label's text.
	RenameLabel(ctx context.Context, guildID, labelID, newName string) error

	// GetLabel resolves a label by ID. NotFound when it no longer exists.
	GetLabel(ctx context.Context, guildID, labelID string) (*Label, error)

	// ListLabels returns every label in the guild.
	ListLabels(ctx context.Context, guildID string) ([]Label, error)

	// AddLabelToMember attaches a label to a member. Idempotent on the
	// remote side.
	AddLabelToMember(ctx context.Context, guildID, memberID, labelID string) error

	// RemoveLabelFromMember detaches a label from a member.
	RemoveLabelFromMember(ctx context.Context, guildID, memberID, labelID string) error

	// MemberHasLabel reports whether the member currently holds the label.
	MemberHasLabel(ctx context.Context, guildID, memberID, labelID string) (bool, error)

	// GetMember resolves a member by ID. NotFound when they left.
	GetMember(ctx context.Context, guildID, memberID string) (*Member, error)

	// ListMembers returns the guild's members from the primary (cached)
	// listing. May legitimately return an empty slice when the cache is
	// cold; callers fall back to FetchMembersFallback.
	ListMembers(ctx context.Context, guildID string) ([]Member, error)

	// FetchMembersFallback enumerates members through the slower paged
	// path. Returns nil when the fallback is unavailable.
	FetchMembersFallback(ctx context.Context, guildID string) ([]Member, error)
}

// LabelNames collects the set of label texts currently in use, the
// working set UniqueNamer probes against.
func LabelNames(labels []Label) map[string]struct{} {
	names := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		names[l.Name] = struct{}{}
	}
	return names
}
