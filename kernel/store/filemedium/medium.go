// Package filemedium stores each key as one JSON text file on local disk.
package filemedium

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Medium persists key-value pairs as files under a root directory.
type Medium struct {
	root string
	mu   sync.Mutex
}

func New(root string) (*Medium, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("filemedium: root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filemedium: create root: %w", err)
	}
	return &Medium{root: root}, nil
}

func (m *Medium) GetItem(key string) (string, bool, error) {
	path, err := m.keyPath(key)
	if err != nil {
		return "", false, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("filemedium: read %q: %w", key, err)
	}
	return string(raw), true, nil
}

func (m *Medium) SetItem(key, value string) error {
	path, err := m.keyPath(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("filemedium: write %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("filemedium: rename %q: %w", key, err)
	}
	return nil
}

func (m *Medium) RemoveItem(key string) error {
	path, err := m.keyPath(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("filemedium: remove %q: %w", key, err)
	}
	return nil
}

func (m *Medium) keyPath(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(m.root, key+".json"), nil
}

func validateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("filemedium: key is empty")
	}
	if key == "." || key == ".." {
		return fmt.Errorf("filemedium: invalid key %q", key)
	}
	if strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("filemedium: invalid key %q", key)
	}
	if filepath.Clean(key) != key {
		return fmt.Errorf("filemedium: invalid key %q", key)
	}
	return nil
}
