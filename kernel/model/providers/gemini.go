package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rayan4-dot/kudoai/kernel/model"
)

type geminiGenerator struct {
	name         string
	modelName    string
	baseURL      string
	token        string
	client       *http.Client
	maxOutputTok int
}

func newGemini(cfg Config, token string) model.Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &geminiGenerator{
		name:         cfg.Alias,
		modelName:    cfg.Model,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        token,
		client:       &http.Client{Timeout: timeout},
		maxOutputTok: cfg.MaxOutputTok,
	}
}

func (g *geminiGenerator) Name() string {
	return g.name
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	}
	if g.maxOutputTok > 0 {
		payload.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: g.maxOutputTok}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.modelName, url.QueryEscape(g.token))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", statusError(resp)
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("model: empty candidates")
	}
	textParts := make([]string, 0, len(out.Candidates[0].Content.Parts))
	for _, part := range out.Candidates[0].Content.Parts {
		if strings.TrimSpace(part.Text) != "" {
			textParts = append(textParts, part.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(textParts, "\n"))
	if text == "" {
		return "", fmt.Errorf("model: empty response text")
	}
	return text, nil
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}
