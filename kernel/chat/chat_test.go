package chat

import (
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "long content truncated to 30 runes",
			content: "Hello world, this is a long message",
			want:    "Hello world, this is a long me...",
		},
		{
			name:    "short content keeps ellipsis marker",
			content: "hi",
			want:    "hi...",
		},
		{
			name:    "exactly 30 runes",
			content: strings.Repeat("a", 30),
			want:    strings.Repeat("a", 30) + "...",
		},
		{
			name:    "multibyte runes are not split",
			content: strings.Repeat("é", 40),
			want:    strings.Repeat("é", 30) + "...",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveTitle(tc.content); got != tc.want {
				t.Fatalf("DeriveTitle(%q) = %q, want %q", tc.content, got, tc.want)
			}
		})
	}
}

func TestNewSessionID_UniqueAndPrefixed(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		if !strings.HasPrefix(id, "chat_") {
			t.Fatalf("unexpected session id format %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant, RoleError} {
		if !r.Valid() {
			t.Fatalf("expected role %q to be valid", r)
		}
	}
	if Role("system").Valid() {
		t.Fatal("did not expect open-ended roles to validate")
	}
}
