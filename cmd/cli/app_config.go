package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	modelproviders "github.com/rayan4-dot/kudoai/kernel/model/providers"
)

const (
	configVersion    = 1
	configFileSuffix = "_config.json"
)

type appConfig struct {
	Version      int              `json:"version"`
	DefaultModel string           `json:"default_model"`
	StoreMode    string           `json:"store_mode,omitempty"`
	Providers    []providerRecord `json:"providers,omitempty"`
}

type providerRecord struct {
	Alias          string     `json:"alias"`
	Provider       string     `json:"provider"`
	API            string     `json:"api"`
	Model          string     `json:"model"`
	BaseURL        string     `json:"base_url"`
	TimeoutSeconds int        `json:"timeout_seconds,omitempty"`
	MaxOutputTok   int        `json:"max_output_tokens,omitempty"`
	Auth           authRecord `json:"auth"`
}

// authRecord never carries the token itself; tokens live in the credential
// file and are merged in at load time, or come from the environment.
type authRecord struct {
	TokenEnv      string `json:"token_env,omitempty"`
	CredentialRef string `json:"credential_ref,omitempty"`
}

type appConfigStore struct {
	path   string
	data   appConfig
	tokens map[string]string
}

func loadOrInitAppConfig(appName string) (*appConfigStore, error) {
	path, err := configPath(appName)
	if err != nil {
		return nil, err
	}
	store := &appConfigStore{
		path: path,
		data: defaultAppConfig(),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cli config: read %q: %w", path, err)
		}
		if err := store.save(); err != nil {
			return nil, err
		}
		return store, nil
	}

	var loaded appConfig
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("cli config: parse %q: %w", path, err)
	}
	mergeAppConfigDefaults(&loaded)
	store.data = loaded
	return store, nil
}

func (s *appConfigStore) DefaultModel() string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s.data.DefaultModel))
}

func (s *appConfigStore) StoreMode() string {
	if s == nil {
		return storeModeFile
	}
	return normalizeStoreMode(s.data.StoreMode)
}

func (s *appConfigStore) ProviderConfigs() []modelproviders.Config {
	if s == nil || len(s.data.Providers) == 0 {
		return nil
	}
	out := make([]modelproviders.Config, 0, len(s.data.Providers))
	for _, rec := range s.data.Providers {
		alias := strings.TrimSpace(strings.ToLower(rec.Alias))
		if alias == "" {
			continue
		}
		cfg := modelproviders.Config{
			Alias:        alias,
			Provider:     strings.TrimSpace(rec.Provider),
			API:          modelproviders.APIType(strings.TrimSpace(rec.API)),
			Model:        strings.TrimSpace(rec.Model),
			BaseURL:      strings.TrimSpace(rec.BaseURL),
			MaxOutputTok: rec.MaxOutputTok,
			Auth: modelproviders.AuthConfig{
				TokenEnv: strings.TrimSpace(rec.Auth.TokenEnv),
			},
		}
		if s.tokens != nil {
			cfg.Auth.Token = s.tokens[alias]
		}
		if rec.TimeoutSeconds > 0 {
			cfg.Timeout = time.Duration(rec.TimeoutSeconds) * time.Second
		}
		out = append(out, cfg)
	}
	return out
}

func (s *appConfigStore) SetDefaultModel(alias string) error {
	if s == nil {
		return nil
	}
	alias = strings.TrimSpace(strings.ToLower(alias))
	if alias == "" || s.data.DefaultModel == alias {
		return nil
	}
	s.data.DefaultModel = alias
	return s.save()
}

func (s *appConfigStore) SetStoreMode(mode string) error {
	if s == nil {
		return nil
	}
	mode = normalizeStoreMode(mode)
	if s.data.StoreMode == mode {
		return nil
	}
	s.data.StoreMode = mode
	return s.save()
}

func (s *appConfigStore) UpsertProvider(cfg modelproviders.Config) error {
	if s == nil {
		return nil
	}
	alias := strings.TrimSpace(strings.ToLower(cfg.Alias))
	if alias == "" {
		return fmt.Errorf("cli config: provider alias is required")
	}
	record := providerRecord{
		Alias:        alias,
		Provider:     strings.TrimSpace(cfg.Provider),
		API:          string(cfg.API),
		Model:        strings.TrimSpace(cfg.Model),
		BaseURL:      strings.TrimSpace(cfg.BaseURL),
		MaxOutputTok: cfg.MaxOutputTok,
		Auth: authRecord{
			TokenEnv: strings.TrimSpace(cfg.Auth.TokenEnv),
		},
	}
	record.Auth.CredentialRef = defaultCredentialRef(record.Provider, record.BaseURL)
	if cfg.Timeout > 0 {
		record.TimeoutSeconds = int(cfg.Timeout.Seconds())
	}

	found := false
	for i := range s.data.Providers {
		if strings.EqualFold(strings.TrimSpace(s.data.Providers[i].Alias), alias) {
			s.data.Providers[i] = record
			found = true
			break
		}
	}
	if !found {
		s.data.Providers = append(s.data.Providers, record)
	}
	return s.save()
}

func (s *appConfigStore) save() error {
	if s == nil {
		return nil
	}
	mergeAppConfigDefaults(&s.data)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("cli config: create dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("cli config: marshal: %w", err)
	}
	raw = append(raw, '\n')
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("cli config: write tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("cli config: rename: %w", err)
	}
	return nil
}

func defaultAppConfig() appConfig {
	return appConfig{
		Version:   configVersion,
		StoreMode: storeModeFile,
	}
}

func mergeAppConfigDefaults(cfg *appConfig) {
	if cfg == nil {
		return
	}
	if cfg.Version <= 0 {
		cfg.Version = configVersion
	}
	cfg.DefaultModel = strings.TrimSpace(strings.ToLower(cfg.DefaultModel))
	cfg.StoreMode = normalizeStoreMode(cfg.StoreMode)
}

func normalizeStoreMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case storeModeSQLite:
		return storeModeSQLite
	case storeModeMemory:
		return storeModeMemory
	default:
		return storeModeFile
	}
}

func configPath(appName string) (string, error) {
	root, err := appDataDir(appName)
	if err != nil {
		return "", err
	}
	name := normalizedAppName(appName)
	return filepath.Join(root, name+configFileSuffix), nil
}

func chatDataDir(appName string) (string, error) {
	root, err := appDataDir(appName)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "chats"), nil
}

func historyFilePath(appName string) (string, error) {
	root, err := appDataDir(appName)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "history", "console.history"), nil
}

func appDataDir(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cli config: resolve user home: %w", err)
	}
	return filepath.Join(home, "."+normalizedAppName(appName)), nil
}

func normalizedAppName(appName string) string {
	name := sanitizeAppName(appName)
	if name == "" {
		return "kudoai"
	}
	return name
}

func sanitizeAppName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return strings.ToLower(strings.Trim(b.String(), "_"))
}
