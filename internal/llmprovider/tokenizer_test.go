package llmprovider

import "testing"

func TestResolveStrategyByProviderName(t *testing.T) {
	tt := []struct {
		provider string
		want     TokenStrategy
	}{
		{"anthropic", StrategyAnthropic},
		{"openai", StrategyOpenAI},
		{"xai", StrategyOpenAI},
		{"google", StrategyGemini},
		{"unknown-vendor", StrategyDefault},
	}
	for _, tc := range tt {
		if got := resolveStrategy(tc.provider); got != tc.want {
			t.Errorf("resolveStrategy(%q) = %v, want %v", tc.provider, got, tc.want)
		}
	}
}

func TestCountTextEmpty(t *testing.T) {
	tc := NewTokenCounter("anthropic")
	if got := tc.CountText(""); got != 0 {
		t.Errorf("CountText(\"\") = %d, want 0", got)
	}
}

func TestCountMessagesIncludesOverhead(t *testing.T) {
	tc := NewTokenCounter("openai")
	messages := []Message{
		{Role: "system", Content: "You are a briefing assistant."},
		{Role: "user", Content: "Summarize these stories."},
	}
	bare := tc.CountText(messages[0].Content) + tc.CountText(messages[1].Content)
	got := tc.CountMessages(messages)
	if got <= bare {
		t.Errorf("CountMessages should add per-message and list overhead, got %d, bare sum %d", got, bare)
	}
}

func TestEstimateGenerationWorstCase(t *testing.T) {
	tc := NewTokenCounter("google")
	messages := []Message{{Role: "user", Content: "hello"}}
	input, worst := tc.EstimateGeneration(messages, 512)
	if worst != input+512 {
		t.Errorf("worstCaseTotal = %d, want %d", worst, input+512)
	}
}
