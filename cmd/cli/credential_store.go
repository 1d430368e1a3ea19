package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const (
	credentialFileVersion = 1
	credentialFileSuffix  = "_credentials.json"
)

type credentialRecord struct {
	Token     string `json:"token,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type credentialFile struct {
	Version     int                         `json:"version"`
	Credentials map[string]credentialRecord `json:"credentials,omitempty"`
}

// credentialStore keeps API keys out of the main config file, in a JSON
// file with owner-only permissions.
type credentialStore struct {
	path string
	data credentialFile
}

func loadOrInitCredentialStore(appName string) (*credentialStore, error) {
	path, err := credentialPath(appName)
	if err != nil {
		return nil, err
	}
	store := &credentialStore{
		path: path,
		data: credentialFile{
			Version:     credentialFileVersion,
			Credentials: map[string]credentialRecord{},
		},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("credential store: read %q: %w", path, err)
		}
		if err := store.save(); err != nil {
			return nil, err
		}
		return store, nil
	}
	var loaded credentialFile
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("credential store: parse %q: %w", path, err)
	}
	if loaded.Version <= 0 {
		loaded.Version = credentialFileVersion
	}
	if loaded.Credentials == nil {
		loaded.Credentials = map[string]credentialRecord{}
	}
	store.data = loaded
	if err := ensureFilePermission(path, 0o600); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *credentialStore) Upsert(ref, token string) error {
	if s == nil {
		return nil
	}
	key := normalizeCredentialRef(ref)
	if key == "" {
		return fmt.Errorf("credential store: credential ref is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		delete(s.data.Credentials, key)
		return s.save()
	}
	s.data.Credentials[key] = credentialRecord{
		Token:     token,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return s.save()
}

func (s *credentialStore) Get(ref string) (string, bool) {
	if s == nil {
		return "", false
	}
	key := normalizeCredentialRef(ref)
	if key == "" {
		return "", false
	}
	record, ok := s.data.Credentials[key]
	if !ok {
		return "", false
	}
	token := strings.TrimSpace(record.Token)
	return token, token != ""
}

func (s *credentialStore) save() error {
	if s == nil {
		return nil
	}
	if s.data.Version <= 0 {
		s.data.Version = credentialFileVersion
	}
	if s.data.Credentials == nil {
		s.data.Credentials = map[string]credentialRecord{}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credential store: create dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("credential store: marshal: %w", err)
	}
	raw = append(raw, '\n')
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("credential store: write tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("credential store: rename: %w", err)
	}
	return ensureFilePermission(s.path, 0o600)
}

func credentialPath(appName string) (string, error) {
	root, err := appDataDir(appName)
	if err != nil {
		return "", err
	}
	name := normalizedAppName(appName)
	return filepath.Join(root, name+credentialFileSuffix), nil
}

func ensureFilePermission(path string, perm os.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode().Perm() == perm {
		return nil
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("credential store: chmod %q: %w", path, err)
	}
	return nil
}

func defaultCredentialRef(provider, baseURL string) string {
	providerPart := normalizeCredentialRef(provider)
	if providerPart == "" {
		return ""
	}
	hostPart := ""
	if parsed, err := url.Parse(strings.TrimSpace(baseURL)); err == nil {
		if host := strings.TrimSpace(parsed.Hostname()); host != "" {
			hostPart = normalizeCredentialRef(host)
		}
	}
	if hostPart == "" {
		return providerPart
	}
	return providerPart + "_" + hostPart
}

func normalizeCredentialRef(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(input))
	lastUnderscore := false
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// mergeCredentialStoreProviderTokens resolves each configured provider's
// stored token so ProviderConfigs can hand it to the factory. Providers
// with a token_env keep resolving from the environment instead.
func mergeCredentialStoreProviderTokens(configStore *appConfigStore, credentials *credentialStore) error {
	if configStore == nil || credentials == nil {
		return nil
	}
	for _, rec := range configStore.data.Providers {
		if strings.TrimSpace(rec.Auth.TokenEnv) != "" {
			continue
		}
		ref := normalizeCredentialRef(rec.Auth.CredentialRef)
		if ref == "" {
			ref = defaultCredentialRef(rec.Provider, rec.BaseURL)
		}
		if ref == "" {
			continue
		}
		token, ok := credentials.Get(ref)
		if !ok {
			continue
		}
		alias := strings.ToLower(strings.TrimSpace(rec.Alias))
		if alias == "" {
			continue
		}
		if configStore.tokens == nil {
			configStore.tokens = map[string]string{}
		}
		configStore.tokens[alias] = token
	}
	return nil
}
