package sqlitemedium

import (
	"path/filepath"
	"testing"
)

func TestMedium_SetGetRemove(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "kudoai_chats.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = m.Close()
	})
	if _, ok, err := m.GetItem("kudoai_chats"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := m.SetItem("kudoai_chats", `{"chat_1":{}}`); err != nil {
		t.Fatal(err)
	}
	if err := m.SetItem("kudoai_chats", `{"chat_2":{}}`); err != nil {
		t.Fatal(err)
	}
	value, ok, err := m.GetItem("kudoai_chats")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != `{"chat_2":{}}` {
		t.Fatalf("expected upserted value, got %q ok=%v", value, ok)
	}
	if err := m.RemoveItem("kudoai_chats"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.GetItem("kudoai_chats"); ok {
		t.Fatal("did not expect key after remove")
	}
	if err := m.RemoveItem("kudoai_chats"); err != nil {
		t.Fatal(err)
	}
}

func TestMedium_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kudoai_chats.db")
	m, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetItem("kudoai_messages_chat_1", `[{"role":"user"}]`); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	reopened, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = reopened.Close()
	})
	value, ok, err := reopened.GetItem("kudoai_messages_chat_1")
	if err != nil || !ok || value != `[{"role":"user"}]` {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", value, ok, err)
	}
}
