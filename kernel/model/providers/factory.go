package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rayan4-dot/kudoai/kernel/model"
)

// Factory builds generators from alias configs.
type Factory struct {
	configs map[string]Config
}

// NewFactory returns an empty provider factory.
func NewFactory() *Factory {
	return &Factory{configs: map[string]Config{}}
}

// Register adds or overwrites one alias config.
func (f *Factory) Register(cfg Config) error {
	if f == nil {
		return fmt.Errorf("providers: factory is nil")
	}
	alias := strings.ToLower(strings.TrimSpace(cfg.Alias))
	if alias == "" {
		return fmt.Errorf("providers: alias is required")
	}
	if cfg.API != APIGemini && cfg.API != APIOpenAICompatible {
		return fmt.Errorf("providers: unsupported api type %q", cfg.API)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("providers: model name is required for alias %q", alias)
	}
	cfg.Alias = alias
	f.configs[alias] = cfg
	return nil
}

// NewByAlias creates a generator by alias. A registered alias whose
// credential cannot be resolved yields model.ErrMissingCredential.
func (f *Factory) NewByAlias(alias string) (model.Generator, error) {
	if f == nil {
		return nil, fmt.Errorf("providers: factory is nil")
	}
	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias == "" {
		return nil, fmt.Errorf("providers: model alias is required")
	}
	cfg, ok := f.configs[alias]
	if !ok {
		return nil, fmt.Errorf("providers: unknown model alias %q", alias)
	}
	token, err := resolveToken(alias, cfg.Auth)
	if err != nil {
		return nil, err
	}
	switch cfg.API {
	case APIGemini:
		return newGemini(cfg, token), nil
	case APIOpenAICompatible:
		return newOpenAICompat(cfg, token), nil
	default:
		return nil, fmt.Errorf("providers: unsupported api type %q", cfg.API)
	}
}

// ListAliases returns registered aliases in sorted order.
func (f *Factory) ListAliases() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.configs))
	for alias := range f.configs {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

func resolveToken(alias string, auth AuthConfig) (string, error) {
	token := strings.TrimSpace(auth.Token)
	if token == "" && strings.TrimSpace(auth.TokenEnv) != "" {
		token = strings.TrimSpace(os.Getenv(auth.TokenEnv))
	}
	if token == "" {
		return "", fmt.Errorf("providers: alias %q: %w", alias, model.ErrMissingCredential)
	}
	return token, nil
}
