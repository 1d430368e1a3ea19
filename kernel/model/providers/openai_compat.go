package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rayan4-dot/kudoai/kernel/model"
)

type openAICompatGenerator struct {
	name         string
	modelName    string
	baseURL      string
	token        string
	client       *http.Client
	maxOutputTok int
}

func newOpenAICompat(cfg Config, token string) model.Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &openAICompatGenerator{
		name:         cfg.Alias,
		modelName:    cfg.Model,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        token,
		client:       &http.Client{Timeout: timeout},
		maxOutputTok: cfg.MaxOutputTok,
	}
}

func (g *openAICompatGenerator) Name() string {
	return g.name
}

func (g *openAICompatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	payload := openAICompatRequest{
		Model: g.modelName,
		Messages: []openAICompatMessage{{
			Role:    "user",
			Content: prompt,
		}},
	}
	if g.maxOutputTok > 0 {
		payload.MaxTokens = g.maxOutputTok
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", statusError(resp)
	}
	var out openAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("model: empty choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("model: empty response text")
	}
	return text, nil
}

type openAICompatRequest struct {
	Model     string                `json:"model"`
	Messages  []openAICompatMessage `json:"messages"`
	MaxTokens int                   `json:"max_tokens,omitempty"`
}

type openAICompatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAICompatResponse struct {
	Choices []struct {
		Message openAICompatMessage `json:"message"`
	} `json:"choices"`
}
