package llmprovider

import (
	"context"
	"testing"
)

type stubProvider struct {
	name       string
	configured bool
}

func (s *stubProvider) Name() string       { return s.name }
func (s *stubProvider) IsConfigured() bool { return s.configured }
func (s *stubProvider) LastUsage() Usage   { return Usage{} }
func (s *stubProvider) Generate(ctx context.Context, messages []Message, modelID string, maxTokens int) (string, error) {
	return "stub output", nil
}

func TestDetectProvider(t *testing.T) {
	tt := []struct {
		model string
		want  string
	}{
		{"claude-3.5-sonnet", "anthropic"},
		{"gpt-4o-mini", "openai"},
		{"o1-preview", "openai"},
		{"gemini-1.5-pro", "google"},
		{"grok-2", "xai"},
		{"llama-3.1-70b", "unknown"},
	}
	for _, tc := range tt {
		if got := DetectProvider(tc.model); got != tc.want {
			t.Errorf("DetectProvider(%q) = %q, want %q", tc.model, got, tc.want)
		}
	}
}

func TestRegistryResolveFallsBackToDefault(t *testing.T) {
	r := NewRegistry("claude-3.5-sonnet")
	anthropic := &stubProvider{name: "anthropic", configured: true}
	r.RegisterProvider(anthropic)
	r.RegisterModel("claude-3.5-sonnet", "anthropic", "claude-3-5-sonnet-20241022", "anthropic")
	r.RegisterModel("gemini-1.5-pro", "google", "gemini-1.5-pro", "google")

	resolved, ok := r.Resolve("gemini-1.5-pro")
	if !ok {
		t.Fatalf("expected fallback resolution to succeed")
	}
	if resolved.ModelName != "claude-3.5-sonnet" {
		t.Errorf("expected fallback to default model, got %q", resolved.ModelName)
	}
	if resolved.Provider.Name() != "anthropic" {
		t.Errorf("expected anthropic provider, got %q", resolved.Provider.Name())
	}
}

func TestRegistryResolveUnconfiguredEverywhere(t *testing.T) {
	r := NewRegistry("claude-3.5-sonnet")
	r.RegisterProvider(&stubProvider{name: "anthropic", configured: false})
	r.RegisterModel("claude-3.5-sonnet", "anthropic", "claude-3-5-sonnet-20241022", "anthropic")

	if _, ok := r.Resolve("claude-3.5-sonnet"); ok {
		t.Fatalf("expected resolution to fail when no provider is configured")
	}
}

func TestRegistryResolveExactMatch(t *testing.T) {
	r := NewRegistry("claude-3.5-sonnet")
	r.RegisterProvider(&stubProvider{name: "openai", configured: true})
	r.RegisterProvider(&stubProvider{name: "anthropic", configured: true})
	r.RegisterModel("claude-3.5-sonnet", "anthropic", "claude-3-5-sonnet-20241022", "anthropic")
	r.RegisterModel("gpt-4o", "openai", "gpt-4o", "openai")

	resolved, ok := r.Resolve("gpt-4o")
	if !ok || resolved.Provider.Name() != "openai" {
		t.Fatalf("expected exact-match resolution to openai, got %+v ok=%v", resolved, ok)
	}
}
