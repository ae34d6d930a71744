// Package names computes canonical and collision-free label texts.
// Everything here is pure: no I/O, no error paths.
package names

import (
	"fmt"
	"strings"

	"github.com/handlesync/handlesync-server/internal/directory"
)

// MaxLabelName is the longest label text the remote platform accepts.
// Enforced by callers before any create/rename, not here.
const MaxLabelName = 100

// CanonicalIdentityName returns the label text that mirrors a member's
// identity: the trimmed nickname when set, else the username. Never
// empty as long as the member has a username.
func CanonicalIdentityName(m directory.Member) string {
	if nick := strings.TrimSpace(m.Nickname); nick != "" {
		return nick
	}
	return m.Username
}

// CanonicalCustomName normalizes a requested handle: trimmed, with the
// member's username substituted when the request is blank.
func CanonicalCustomName(requested string, m directory.Member) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	return m.Username
}

// Unique returns a label text guaranteed distinct from every entry of
// inUse, probing "desired (2)", "desired (3)", … when desired itself is
// taken. exclude, when non-empty, is removed from the working set first
// so a label being renamed never collides with its own current text.
//
// Callers must capture inUse immediately before the create/rename call
// and thread their own additions through a multi-member pass; a stale
// set defeats the guarantee.
func Unique(desired string, inUse map[string]struct{}, exclude string) string {
	if exclude != "" {
		if _, ok := inUse[exclude]; ok {
			working := make(map[string]struct{}, len(inUse))
			for name := range inUse {
				working[name] = struct{}{}
			}
			delete(working, exclude)
			inUse = working
		}
	}
	if _, taken := inUse[desired]; !taken {
		return desired
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", desired, i)
		if _, taken := inUse[candidate]; !taken {
			return candidate
		}
	}
}

// BaseName strips a single trailing " (n)" disambiguation suffix, if
// present, returning the name Unique would have started from. Used to
// stop numbered variants from slipping past the blacklist.
func BaseName(name string) string {
	open := strings.LastIndex(name, " (")
	if open < 0 || !strings.HasSuffix(name, ")") {
		return name
	}
	digits := name[open+2 : len(name)-1]
	if digits == "" {
		return name
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return name
		}
	}
	return name[:open]
}
