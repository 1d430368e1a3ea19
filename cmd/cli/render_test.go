package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rayan4-dot/kudoai/kernel/chat"
)

func TestSortSessionsByRecency(t *testing.T) {
	sessions := map[string]chat.Session{
		"chat_1": {ID: "chat_1", Title: "old", UpdatedAt: 100},
		"chat_2": {ID: "chat_2", Title: "new", UpdatedAt: 300},
		"chat_3": {ID: "chat_3", Title: "mid", UpdatedAt: 200},
	}
	ordered := sortSessionsByRecency(sessions)
	got := make([]string, 0, len(ordered))
	for _, sess := range ordered {
		got = append(got, sess.ID)
	}
	if strings.Join(got, ",") != "chat_2,chat_3,chat_1" {
		t.Fatalf("order = %v", got)
	}
}

func TestTruncateTitle(t *testing.T) {
	if got := truncateTitle("short", 32); got != "short" {
		t.Fatalf("truncateTitle = %q", got)
	}
	long := strings.Repeat("x", 40)
	got := truncateTitle(long, 32)
	if len([]rune(got)) != 32 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncateTitle long = %q", got)
	}
}

func TestShortSessionID(t *testing.T) {
	if got := shortSessionID("chat_1717171717171"); got != "#717171" {
		t.Fatalf("shortSessionID = %q", got)
	}
	if got := shortSessionID("chat_42"); got != "#42" {
		t.Fatalf("shortSessionID short = %q", got)
	}
}

func TestPrintMessageRoles(t *testing.T) {
	out := &bytes.Buffer{}
	p := newTranscriptPrinter(out)

	p.printMessage(chat.Message{Role: chat.RoleUser, Content: "hi"})
	p.printMessage(chat.Message{Role: chat.RoleAssistant, Content: "hello"})
	p.printMessage(chat.Message{Role: chat.RoleError, Content: "boom"})

	text := out.String()
	for _, want := range []string{"you:", "assistant:", "error:", "hi", "hello", "boom"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q: %q", want, text)
		}
	}
}
