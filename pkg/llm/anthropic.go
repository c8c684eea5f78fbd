package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AnthropicLLM adapts the teacher's AnthropicLLM to a single-prompt
// Generate call; the whole prompt is sent as one user message with no
// separate system turn.
type AnthropicLLM struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

func NewAnthropicLLM(apiKey, model string) *AnthropicLLM {
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	return &AnthropicLLM{
		apiKey:     apiKey,
		url:        "https://api.anthropic.com/v1/messages",
		model:      model,
		httpClient: &http.Client{},
	}
}

func (l *AnthropicLLM) Name() string { return "anthropic-llm" }

func (l *AnthropicLLM) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	payload := map[string]interface{}{
		"model": l.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic llm error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content returned from anthropic")
	}
	return result.Content[0].Text, nil
}
