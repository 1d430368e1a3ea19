// Package envload populates the process environment from the nearest .env
// file so API keys can live next to the project instead of the shell rc.
package envload

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load walks from the working directory upward and loads the first .env
// file it finds. Variables already present in the environment win. Returns
// the loaded path, empty when no .env exists.
func Load() string {
	path, err := loadNearest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: load .env: %v\n", err)
		return ""
	}
	return path
}

func loadNearest() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dir := wd
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			if err := loadFile(path); err != nil {
				return "", err
			}
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("envload: set %q: %w", key, err)
		}
	}
	return scanner.Err()
}

func parseLine(raw string) (key, value string, ok bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(k)
	if key == "" {
		return "", "", false
	}
	value = strings.Trim(strings.TrimSpace(v), `"'`)
	return key, value, true
}
