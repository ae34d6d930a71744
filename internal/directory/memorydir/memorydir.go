// Package memorydir is an in-memory Directory implementation. It backs
// the engine's tests and the dry-run bootstrap mode, and mimics the
// remote platform's semantics: flat namespaces that happily accept
// duplicate label names, cold member caches, and injectable failures.
package memorydir

import (
	"context"
	"sync"

	"github.com/handlesync/handlesync-server/internal/directory"
	"github.com/handlesync/handlesync-server/internal/errors"
	"github.com/handlesync/handlesync-server/internal/id"
)

type guild struct {
	labels       map[string]*directory.Label // labelID -> label
	labelOrder   []string
	members      map[string]directory.Member // memberID -> member
	memberOrder  []string
	memberLabels map[string]map[string]struct{} // memberID -> set of labelIDs
	cacheCold    bool                           // ListMembers returns nothing until warmed
}

// Dir is an in-memory remote directory.
type Dir struct {
	mu     sync.Mutex
	guilds map[string]*guild

	// Failure injection hooks, consulted before the operation applies.
	// Nil hooks never fire.
	FailCreateLabel func(guildID, name string) error
	FailRenameLabel func(guildID, labelID string) error
	FailAddLabel    func(guildID, memberID string) error
	FailRemoveLabel func(guildID, memberID string) error

	createCalls int
	renameCalls int
}

// New creates an empty directory.
func New() *Dir {
	return &Dir{guilds: make(map[string]*guild)}
}

// AddGuild registers a guild. No-op if it already exists.
func (d *Dir) AddGuild(guildID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensureGuild(guildID)
}

func (d *Dir) ensureGuild(guildID string) *guild {
	g, ok := d.guilds[guildID]
	if !ok {
		g = &guild{
			labels:       make(map[string]*directory.Label),
			members:      make(map[string]directory.Member),
			memberLabels: make(map[string]map[string]struct{}),
		}
		d.guilds[guildID] = g
	}
	return g
}

// AddMember places a member in a guild.
func (d *Dir) AddMember(guildID string, m directory.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	if _, ok := g.members[m.ID]; !ok {
		g.memberOrder = append(g.memberOrder, m.ID)
	}
	g.members[m.ID] = m
}

// RemoveMember simulates a member leaving the guild.
func (d *Dir) RemoveMember(guildID, memberID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	delete(g.members, memberID)
	delete(g.memberLabels, memberID)
	for i, mid := range g.memberOrder {
		if mid == memberID {
			g.memberOrder = append(g.memberOrder[:i], g.memberOrder[i+1:]...)
			break
		}
	}
}

// SetNickname updates a member's nickname in place.
func (d *Dir) SetNickname(guildID, memberID, nickname string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	if m, ok := g.members[memberID]; ok {
		m.Nickname = nickname
		g.members[memberID] = m
	}
}

// SeedLabel creates a label as if someone else made it, bypassing the
// failure hooks and call counters.
func (d *Dir) SeedLabel(guildID, name string) *directory.Label {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	l := &directory.Label{ID: id.MustGenerate("label"), Name: name}
	g.labels[l.ID] = l
	g.labelOrder = append(g.labelOrder, l.ID)
	return l
}

// DeleteLabel simulates a label being removed out from under the engine.
func (d *Dir) DeleteLabel(guildID, labelID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	delete(g.labels, labelID)
	for i, lid := range g.labelOrder {
		if lid == labelID {
			g.labelOrder = append(g.labelOrder[:i], g.labelOrder[i+1:]...)
			break
		}
	}
	for _, held := range g.memberLabels {
		delete(held, labelID)
	}
}

// SetCacheCold controls whether ListMembers returns members. A cold
// cache forces callers onto the fallback enumeration path.
func (d *Dir) SetCacheCold(guildID string, cold bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensureGuild(guildID).cacheCold = cold
}

// CreateCalls returns how many CreateLabel calls reached the directory.
func (d *Dir) CreateCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createCalls
}

// RenameCalls returns how many RenameLabel calls reached the directory.
func (d *Dir) RenameCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renameCalls
}

// HeldLabels returns the IDs of labels a member currently holds.
func (d *Dir) HeldLabels(guildID, memberID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	held := make([]string, 0, len(g.memberLabels[memberID]))
	for lid := range g.memberLabels[memberID] {
		held = append(held, lid)
	}
	return held
}

// ListGuilds implements directory.Directory.
func (d *Dir) ListGuilds(_ context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.guilds))
	for gid := range d.guilds {
		ids = append(ids, gid)
	}
	return ids, nil
}

// CreateLabel implements directory.Directory. Duplicate names are
// allowed, as on the real platform.
func (d *Dir) CreateLabel(ctx context.Context, guildID, name string) (*directory.Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Timeout("create label").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createCalls++
	if d.FailCreateLabel != nil {
		if err := d.FailCreateLabel(guildID, name); err != nil {
			return nil, err
		}
	}
	g := d.ensureGuild(guildID)
	l := &directory.Label{ID: id.MustGenerate("label"), Name: name}
	g.labels[l.ID] = l
	g.labelOrder = append(g.labelOrder, l.ID)
	return &directory.Label{ID: l.ID, Name: l.Name}, nil
}

// RenameLabel implements directory.Directory.
func (d *Dir) RenameLabel(ctx context.Context, guildID, labelID, newName string) error {
	if err := ctx.Err(); err != nil {
		return errors.Timeout("rename label").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renameCalls++
	if d.FailRenameLabel != nil {
		if err := d.FailRenameLabel(guildID, labelID); err != nil {
			return err
		}
	}
	g := d.ensureGuild(guildID)
	l, ok := g.labels[labelID]
	if !ok {
		return errors.NotFoundf("label %s not found", labelID)
	}
	l.Name = newName
	return nil
}

// GetLabel implements directory.Directory.
func (d *Dir) GetLabel(ctx context.Context, guildID, labelID string) (*directory.Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Timeout("get label").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	l, ok := g.labels[labelID]
	if !ok {
		return nil, errors.NotFoundf("label %s not found", labelID)
	}
	return &directory.Label{ID: l.ID, Name: l.Name}, nil
}

// ListLabels implements directory.Directory.
func (d *Dir) ListLabels(ctx context.Context, guildID string) ([]directory.Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Timeout("list labels").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	labels := make([]directory.Label, 0, len(g.labelOrder))
	for _, lid := range g.labelOrder {
		if l, ok := g.labels[lid]; ok {
			labels = append(labels, directory.Label{ID: l.ID, Name: l.Name})
		}
	}
	return labels, nil
}

// AddLabelToMember implements directory.Directory.
func (d *Dir) AddLabelToMember(ctx context.Context, guildID, memberID, labelID string) error {
	if err := ctx.Err(); err != nil {
		return errors.Timeout("add label").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailAddLabel != nil {
		if err := d.FailAddLabel(guildID, memberID); err != nil {
			return err
		}
	}
	g := d.ensureGuild(guildID)
	if _, ok := g.members[memberID]; !ok {
		return errors.NotFoundf("member %s not found", memberID)
	}
	if _, ok := g.labels[labelID]; !ok {
		return errors.NotFoundf("label %s not found", labelID)
	}
	held := g.memberLabels[memberID]
	if held == nil {
		held = make(map[string]struct{})
		g.memberLabels[memberID] = held
	}
	held[labelID] = struct{}{}
	return nil
}

// RemoveLabelFromMember implements directory.Directory.
func (d *Dir) RemoveLabelFromMember(ctx context.Context, guildID, memberID, labelID string) error {
	if err := ctx.Err(); err != nil {
		return errors.Timeout("remove label").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailRemoveLabel != nil {
		if err := d.FailRemoveLabel(guildID, memberID); err != nil {
			return err
		}
	}
	g := d.ensureGuild(guildID)
	delete(g.memberLabels[memberID], labelID)
	return nil
}

// MemberHasLabel implements directory.Directory.
func (d *Dir) MemberHasLabel(ctx context.Context, guildID, memberID, labelID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.Timeout("member has label").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	_, held := g.memberLabels[memberID][labelID]
	return held, nil
}

// GetMember implements directory.Directory.
func (d *Dir) GetMember(ctx context.Context, guildID, memberID string) (*directory.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Timeout("get member").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	m, ok := g.members[memberID]
	if !ok {
		return nil, errors.NotFoundf("member %s not found", memberID)
	}
	return &m, nil
}

// ListMembers implements directory.Directory. Returns nothing while the
// member cache is marked cold.
func (d *Dir) ListMembers(ctx context.Context, guildID string) ([]directory.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Timeout("list members").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.ensureGuild(guildID)
	if g.cacheCold {
		return nil, nil
	}
	return d.membersLocked(g), nil
}

// FetchMembersFallback implements directory.Directory. The fallback
// path ignores cache state.
func (d *Dir) FetchMembersFallback(ctx context.Context, guildID string) ([]directory.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Timeout("fetch members").WithCause(err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.membersLocked(d.ensureGuild(guildID)), nil
}

func (d *Dir) membersLocked(g *guild) []directory.Member {
	members := make([]directory.Member, 0, len(g.memberOrder))
	for _, mid := range g.memberOrder {
		if m, ok := g.members[mid]; ok {
			members = append(members, m)
		}
	}
	return members
}
