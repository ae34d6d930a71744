package domain

import "strings"

// GuildSettings holds per-guild admin configuration. Created lazily with
// empty defaults and mutated only by explicit admin commands.
type GuildSettings struct {
	// NotifyUserID and NotifyChannelID are the notification destination.
	// They are mutually exclusive: setting one clears the other. Both
	// empty means notifications are off.
	NotifyUserID    string `json:"notify_user_id,omitempty"`
	NotifyChannelID string `json:"notify_channel_id,omitempty"`

	// Blacklist is the set of reserved label texts, matched
	// case-insensitively. Insertion order preserved for display.
	Blacklist []string `json:"blacklist,omitempty"`
}

// NewGuildSettings returns empty defaults.
func NewGuildSettings() *GuildSettings {
	return &GuildSettings{}
}

// SetNotifyUser routes notifications to a DM target.
func (g *GuildSettings) SetNotifyUser(userID string) {
	g.NotifyUserID = userID
	g.NotifyChannelID = ""
}

// SetNotifyChannel routes notifications to a channel.
func (g *GuildSettings) SetNotifyChannel(channelID string) {
	g.NotifyChannelID = channelID
	g.NotifyUserID = ""
}

// IsBlacklisted reports whether text matches a reserved name,
// case-insensitively.
func (g *GuildSettings) IsBlacklisted(text string) bool {
	for _, entry := range g.Blacklist {
		if strings.EqualFold(entry, text) {
			return true
		}
	}
	return false
}

// AddBlacklist reserves a name. Returns false if an equivalent entry
// (case-insensitive) already exists.
func (g *GuildSettings) AddBlacklist(name string) bool {
	if g.IsBlacklisted(name) {
		return false
	}
	g.Blacklist = append(g.Blacklist, name)
	return true
}

// RemoveBlacklist releases a reserved name by case-insensitive match.
// Returns false if no entry matched.
func (g *GuildSettings) RemoveBlacklist(name string) bool {
	for i, entry := range g.Blacklist {
		if strings.EqualFold(entry, name) {
			g.Blacklist = append(g.Blacklist[:i:i], g.Blacklist[i+1:]...)
			return true
		}
	}
	return false
}
