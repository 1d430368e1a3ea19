package main

import (
	"os"
	"runtime"
	"testing"

	modelproviders "github.com/rayan4-dot/kudoai/kernel/model/providers"
)

func TestCredentialStore_LoadInitAndPersist(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	store, err := loadOrInitCredentialStore("demo-app")
	if err != nil {
		t.Fatal(err)
	}
	ref := "gemini_generativelanguage_googleapis_com"
	if err := store.Upsert(ref, "secret-token"); err != nil {
		t.Fatal(err)
	}

	reloaded, err := loadOrInitCredentialStore("demo-app")
	if err != nil {
		t.Fatal(err)
	}
	token, ok := reloaded.Get(ref)
	if !ok || token != "secret-token" {
		t.Fatalf("Get = %q, %v", token, ok)
	}

	if runtime.GOOS != "windows" {
		path, err := credentialPath("demo-app")
		if err != nil {
			t.Fatal(err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Fatalf("credential file mode = %v, want 0600", info.Mode().Perm())
		}
	}
}

func TestCredentialStore_UpsertEmptyTokenDeletes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	store, err := loadOrInitCredentialStore("demo-app")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert("gemini", "tok"); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert("gemini", "   "); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get("gemini"); ok {
		t.Fatal("empty upsert should remove the credential")
	}
}

func TestDefaultCredentialRef(t *testing.T) {
	got := defaultCredentialRef("gemini", "https://generativelanguage.googleapis.com/v1beta")
	if got != "gemini_generativelanguage_googleapis_com" {
		t.Fatalf("defaultCredentialRef = %q", got)
	}
	if got := defaultCredentialRef("openai-compatible", ""); got != "openai_compatible" {
		t.Fatalf("defaultCredentialRef without base url = %q", got)
	}
}

func TestMergeCredentialStoreProviderTokens(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	configStore, err := loadOrInitAppConfig("demo-app")
	if err != nil {
		t.Fatal(err)
	}
	if err := configStore.UpsertProvider(modelproviders.Config{
		Alias:    "gemini/gemini-1.5-pro",
		Provider: "gemini",
		API:      modelproviders.APIGemini,
		Model:    "gemini-1.5-pro",
		BaseURL:  "https://generativelanguage.googleapis.com/v1beta",
	}); err != nil {
		t.Fatal(err)
	}

	credentials, err := loadOrInitCredentialStore("demo-app")
	if err != nil {
		t.Fatal(err)
	}
	ref := defaultCredentialRef("gemini", "https://generativelanguage.googleapis.com/v1beta")
	if err := credentials.Upsert(ref, "stored-token"); err != nil {
		t.Fatal(err)
	}

	if err := mergeCredentialStoreProviderTokens(configStore, credentials); err != nil {
		t.Fatal(err)
	}
	configs := configStore.ProviderConfigs()
	if len(configs) != 1 {
		t.Fatalf("got %d provider configs", len(configs))
	}
	if configs[0].Auth.Token != "stored-token" {
		t.Fatalf("merged token = %q", configs[0].Auth.Token)
	}
}
