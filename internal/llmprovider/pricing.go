package llmprovider

import (
	"math"
	"sync"
)

// ModelPricing holds per-model USD-per-1M-token rates.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
	Free        bool
}

// PricingConfig is a concurrency-safe table of model pricing, scoped
// to the models the registry actually serves (spec §4.3 cost
// recording only ever needs models this engine can resolve).
type PricingConfig struct {
	mu      sync.RWMutex
	pricing map[string]ModelPricing
}

// DefaultPricing seeds the table with the models registered against
// the four connectors this engine wires (anthropic, openai, google,
// xai). Rates are USD per 1M tokens.
func DefaultPricing() *PricingConfig {
	return &PricingConfig{
		pricing: map[string]ModelPricing{
			"claude-3.5-sonnet": {InputPer1M: 3.00, OutputPer1M: 15.00},
			"claude-3-haiku":    {InputPer1M: 0.25, OutputPer1M: 1.25},
			"claude-3-opus":     {InputPer1M: 15.00, OutputPer1M: 75.00},
			"gpt-4o":            {InputPer1M: 2.50, OutputPer1M: 10.00},
			"gpt-4o-mini":       {InputPer1M: 0.15, OutputPer1M: 0.60},
			"gemini-1.5-pro":    {InputPer1M: 1.25, OutputPer1M: 5.00},
			"gemini-1.5-flash":  {InputPer1M: 0.075, OutputPer1M: 0.30},
			"grok-2":            {InputPer1M: 2.00, OutputPer1M: 10.00},
			"grok-2-mini":       {InputPer1M: 0.20, OutputPer1M: 1.00},
		},
	}
}

// GetPricing returns the pricing entry for a model name, if known.
func (pc *PricingConfig) GetPricing(model string) (ModelPricing, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	p, ok := pc.pricing[model]
	return p, ok
}

// SetPricing overrides or adds a model's pricing entry.
func (pc *PricingConfig) SetPricing(model string, price ModelPricing) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.pricing[model] = price
}

// IsFreeModel reports whether a model is configured as zero-cost.
func (pc *PricingConfig) IsFreeModel(model string) bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.pricing[model].Free
}

// CalculateCost returns the USD cost of a completed call and the
// micro-dollar integer form stored in the `LLM:<date>:*:cost` Redis
// counters (spec §6: stored cost_micro = round(cost_usd * 1e6)).
// An unknown model costs nothing — usage still records tokens, just
// no dollar figure.
func (pc *PricingConfig) CalculateCost(model string, inputTokens, outputTokens int) (usd float64, micro int64) {
	pricing, ok := pc.GetPricing(model)
	if !ok || pricing.Free {
		return 0, 0
	}
	usd = float64(inputTokens)/1_000_000*pricing.InputPer1M + float64(outputTokens)/1_000_000*pricing.OutputPer1M
	micro = int64(math.Round(usd * 1_000_000))
	return usd, micro
}

// EstimateCost projects cost for a call that hasn't run yet, using a
// caller-supplied output-token estimate (e.g. the orchestrator's
// max_tokens budget) in place of actual usage.
func (pc *PricingConfig) EstimateCost(model string, inputTokens, estimatedOutputTokens int) float64 {
	usd, _ := pc.CalculateCost(model, inputTokens, estimatedOutputTokens)
	return usd
}
