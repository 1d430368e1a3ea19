package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	modelproviders "github.com/rayan4-dot/kudoai/kernel/model/providers"
)

type providerTemplate struct {
	label          string
	api            modelproviders.APIType
	provider       string
	defaultBaseURL string
	defaultModel   string
}

var providerTemplates = []providerTemplate{
	{
		label:          "gemini",
		api:            modelproviders.APIGemini,
		provider:       "gemini",
		defaultBaseURL: defaultGeminiBaseURL,
		defaultModel:   defaultGeminiModel,
	},
	{
		label:          "openai-compatible",
		api:            modelproviders.APIOpenAICompatible,
		provider:       "openai-compatible",
		defaultBaseURL: "https://api.openai.com/v1",
	},
}

func handleConnect(c *chatConsole, args []string) (bool, error) {
	if len(args) != 0 {
		return false, fmt.Errorf("usage: /connect")
	}
	if c.modelFactory == nil {
		return false, fmt.Errorf("model factory is not configured")
	}
	c.printf("provider type:\n")
	for i, item := range providerTemplates {
		c.printf("  %d) %s\n", i+1, item.label)
	}
	picked, err := promptIntInRange(c, "provider", 1, len(providerTemplates), 1)
	if err != nil {
		return false, err
	}
	tpl := providerTemplates[picked-1]

	baseURL, err := c.promptText("base_url", tpl.defaultBaseURL, false)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(baseURL) == "" {
		return false, fmt.Errorf("base_url is required")
	}
	modelName, err := c.promptText("model", tpl.defaultModel, false)
	if err != nil {
		return false, err
	}
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return false, fmt.Errorf("model is required")
	}
	timeoutSeconds, err := promptInt(c, "timeout_seconds", 60)
	if err != nil {
		return false, err
	}
	token, err := c.promptText("api_key", "", true)
	if err != nil {
		return false, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false, fmt.Errorf("api_key is required")
	}

	alias := canonicalModelRef(tpl.provider, modelName)
	if alias == "" {
		return false, fmt.Errorf("invalid provider/model")
	}
	cfg := modelproviders.Config{
		Alias:    alias,
		Provider: tpl.provider,
		API:      tpl.api,
		Model:    modelName,
		BaseURL:  strings.TrimSpace(baseURL),
		Timeout:  time.Duration(timeoutSeconds) * time.Second,
		Auth:     modelproviders.AuthConfig{Token: token},
	}
	if err := c.modelFactory.Register(cfg); err != nil {
		return false, err
	}
	generator, err := c.modelFactory.NewByAlias(alias)
	if err != nil {
		return false, err
	}

	if c.configStore != nil {
		if err := c.configStore.UpsertProvider(cfg); err != nil {
			return false, err
		}
		if err := c.configStore.SetDefaultModel(alias); err != nil {
			fmt.Fprintf(c.out, "warn: update default model failed: %v\n", err)
		}
	}
	if c.credentials != nil {
		ref := defaultCredentialRef(cfg.Provider, cfg.BaseURL)
		if err := c.credentials.Upsert(ref, token); err != nil {
			return false, err
		}
		c.printf("note: api_key saved locally with owner-only permissions.\n")
	}

	c.ctl.SetGenerator(generator)
	c.modelAlias = alias
	c.modelConnected = true
	c.printf("connected: %s\n", alias)
	return false, nil
}

func canonicalModelRef(provider, modelName string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	modelName = strings.ToLower(strings.TrimSpace(modelName))
	if provider == "" || modelName == "" {
		return ""
	}
	return provider + "/" + modelName
}

func (c *chatConsole) promptText(name, defaultValue string, secret bool) (string, error) {
	prompt := name
	if strings.TrimSpace(defaultValue) != "" {
		prompt += fmt.Sprintf(" [%s]", defaultValue)
	}
	prompt += ": "
	var (
		line string
		err  error
	)
	if secret {
		line, err = c.editor.ReadSecret(prompt)
	} else {
		line, err = c.editor.ReadLine(prompt)
	}
	if err != nil {
		return "", err
	}
	if line == "" {
		return defaultValue, nil
	}
	return line, nil
}

func promptInt(c *chatConsole, name string, defaultValue int) (int, error) {
	text, err := c.promptText(name, strconv.Itoa(defaultValue), false)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, text)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must be >= 0", name)
	}
	return value, nil
}

func promptIntInRange(c *chatConsole, name string, minValue, maxValue, defaultValue int) (int, error) {
	value, err := promptInt(c, name, defaultValue)
	if err != nil {
		return 0, err
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("invalid %s: %d (expected %d..%d)", name, value, minValue, maxValue)
	}
	return value, nil
}
