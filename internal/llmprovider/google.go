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

const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleProvider implements Provider against the Gemini
// generateContent REST endpoint.
type GoogleProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client

	lastUsage Usage
}

// NewGoogleProvider builds a connector. An empty apiKey means
// IsConfigured reports false.
func NewGoogleProvider(apiKey string, timeout time.Duration) *GoogleProvider {
	return &GoogleProvider{
		apiKey:  apiKey,
		baseURL: googleBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *GoogleProvider) Name() string      { return "google" }
func (p *GoogleProvider) IsConfigured() bool { return p.apiKey != "" }
func (p *GoogleProvider) LastUsage() Usage   { return p.lastUsage }

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent        `json:"systemInstruction,omitempty"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Generate issues a single generateContent call, mapping the system
// message to Gemini's systemInstruction field and "assistant" to
// Gemini's "model" role.
func (p *GoogleProvider) Generate(ctx context.Context, messages []Message, modelID string, maxTokens int) (string, error) {
	req := geminiRequest{GenerationConfig: &geminiGenerationConfig{MaxOutputTokens: maxTokens}}
	for _, m := range messages {
		if m.Role == "system" {
			sys := geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}}
			req.SystemInstruction = &sys
			continue
		}
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, modelID, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var gemResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gemResp); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	p.lastUsage = Usage{InputTokens: gemResp.UsageMetadata.PromptTokenCount, OutputTokens: gemResp.UsageMetadata.CandidatesTokenCount}

	if len(gemResp.Candidates) == 0 {
		return "", nil
	}
	var text string
	for _, part := range gemResp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}
