package names

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/handlesync/handlesync-server/internal/directory"
)

func TestCanonicalIdentityName(t *testing.T) {
	tests := []struct {
		name   string
		member directory.Member
		want   string
	}{
		{"nickname wins", directory.Member{Username: "zo#1", Nickname: "Zo"}, "Zo"},
		{"username fallback", directory.Member{Username: "zo"}, "zo"},
		{"whitespace nickname falls back", directory.Member{Username: "zo", Nickname: "   "}, "zo"},
		{"nickname is trimmed", directory.Member{Username: "zo", Nickname: "  Zo  "}, "Zo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalIdentityName(tt.member))
		})
	}
}

func TestCanonicalCustomName(t *testing.T) {
	m := directory.Member{Username: "zo"}

	assert.Equal(t, "Handle", CanonicalCustomName("  Handle  ", m))
	assert.Equal(t, "zo", CanonicalCustomName("", m))
	assert.Equal(t, "zo", CanonicalCustomName("   ", m))
}

func TestUnique(t *testing.T) {
	inUse := func(names ...string) map[string]struct{} {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		return set
	}

	tests := []struct {
		name    string
		desired string
		set     map[string]struct{}
		exclude string
		want    string
	}{
		{"free name unchanged", "Alice", inUse("Bob"), "", "Alice"},
		{"first suffix", "Alice", inUse("Alice"), "", "Alice (2)"},
		{"probes ascending", "Alice", inUse("Alice", "Alice (2)"), "", "Alice (3)"},
		{"skips holes", "Alice", inUse("Alice", "Alice (2)", "Alice (4)"), "", "Alice (3)"},
		{"exclusion frees own name", "Zo", inUse("Zo"), "Zo", "Zo"},
		{"exclusion of a different name does not help", "Zo", inUse("Zo"), "Zo-old", "Zo (2)"},
		{"empty set", "Alice", inUse(), "", "Alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unique(tt.desired, tt.set, tt.exclude))
		})
	}
}

func TestUnique_DoesNotMutateInput(t *testing.T) {
	set := map[string]struct{}{"Zo": {}}
	_ = Unique("Zo", set, "Zo")
	assert.Contains(t, set, "Zo")
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Moderator (2)", "Moderator"},
		{"Moderator (10)", "Moderator"},
		{"Moderator", "Moderator"},
		{"Moderator (x)", "Moderator (x)"},
		{"Moderator ()", "Moderator ()"},
		{"(2)", "(2)"},
		{"Band (live)", "Band (live)"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseName(tt.in))
		})
	}
}
