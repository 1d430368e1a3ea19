package providers

import "time"

// APIType defines the protocol dialect used by a model provider.
type APIType string

const (
	APIGemini           APIType = "gemini"
	APIOpenAICompatible APIType = "openai_compatible"
)

// AuthConfig is provider-agnostic auth configuration. Token wins over
// TokenEnv when both are present.
type AuthConfig struct {
	Token    string
	TokenEnv string
}

// Config is a provider-agnostic model alias definition.
type Config struct {
	Alias        string
	Provider     string
	API          APIType
	Model        string
	BaseURL      string
	Timeout      time.Duration
	MaxOutputTok int
	Auth         AuthConfig
}
