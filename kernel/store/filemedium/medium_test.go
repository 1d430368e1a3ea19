package filemedium

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMedium_SetGetRemove(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "chats"))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetItem("kudoai_chats", `{"a":1}`); err != nil {
		t.Fatal(err)
	}
	value, ok, err := m.GetItem("kudoai_chats")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != `{"a":1}` {
		t.Fatalf("unexpected value %q ok=%v", value, ok)
	}
	if err := m.RemoveItem("kudoai_chats"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := m.GetItem("kudoai_chats"); err != nil || ok {
		t.Fatalf("expected missing key after remove, ok=%v err=%v", ok, err)
	}
	// Removing a missing key is not an error.
	if err := m.RemoveItem("kudoai_chats"); err != nil {
		t.Fatal(err)
	}
}

func TestMedium_PersistsAcrossReopen(t *testing.T) {
	root := filepath.Join(t.TempDir(), "chats")
	m, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetItem("kudoai_messages_chat_1", `[]`); err != nil {
		t.Fatal(err)
	}
	reopened, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	value, ok, err := reopened.GetItem("kudoai_messages_chat_1")
	if err != nil || !ok || value != `[]` {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", value, ok, err)
	}
	if _, err := os.Stat(filepath.Join(root, "kudoai_messages_chat_1.json")); err != nil {
		t.Fatalf("expected key file on disk: %v", err)
	}
}

func TestMedium_RejectsPathTraversalKeys(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "chats"))
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "..", "../escape", `a\b`, "a/b"} {
		if err := m.SetItem(key, "x"); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
		if _, _, err := m.GetItem(key); err == nil {
			t.Fatalf("expected key %q to be rejected on read", key)
		}
	}
}
