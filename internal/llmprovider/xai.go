package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const xaiBaseURL = "https://api.x.ai/v1"

// XAIProvider implements Provider against xAI's OpenAI-compatible
// chat completions endpoint.
type XAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client

	lastUsage Usage
}

// NewXAIProvider builds a connector. An empty apiKey means
// IsConfigured reports false.
func NewXAIProvider(apiKey string, timeout time.Duration) *XAIProvider {
	return &XAIProvider{
		apiKey:  apiKey,
		baseURL: xaiBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *XAIProvider) Name() string      { return "xai" }
func (p *XAIProvider) IsConfigured() bool { return p.apiKey != "" }
func (p *XAIProvider) LastUsage() Usage   { return p.lastUsage }

// Generate issues a single chat completion call. xAI mirrors OpenAI's
// request/response schema, so this connector reuses the OpenAI wire
// types from openai.go.
func (p *XAIProvider) Generate(ctx context.Context, messages []Message, modelID string, maxTokens int) (string, error) {
	req := openAIChatRequest{Model: modelID, MaxTokens: maxTokens}
	for _, m := range messages {
		req.Messages = append(req.Messages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal xai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build xai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("xai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("xai returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode xai response: %w", err)
	}

	p.lastUsage = Usage{InputTokens: chatResp.Usage.PromptTokens, OutputTokens: chatResp.Usage.CompletionTokens}

	if len(chatResp.Choices) == 0 {
		return "", nil
	}
	return chatResp.Choices[0].Message.Content, nil
}
