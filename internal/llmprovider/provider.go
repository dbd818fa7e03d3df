// Package llmprovider implements the Summary Orchestrator's LLM
// provider abstraction: a minimal non-streaming generate contract, a
// registry that maps model names to providers, and model-name-based
// provider detection (spec §4.3 "Provider selection").
package llmprovider

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Message is one entry in the two-message system/user contract
// (spec §6 "LLM message contract").
type Message struct {
	Role    string
	Content string
}

// Usage records a single call's token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Provider is the contract every connector satisfies (spec §4.3):
// report whether credentials are present, generate HTML from a
// message pair under a token budget, and expose the last call's
// token usage for cost recording.
type Provider interface {
	Name() string
	IsConfigured() bool
	Generate(ctx context.Context, messages []Message, modelID string, maxTokens int) (string, error)
	LastUsage() Usage
}

// Registry maps a registered model name to its provider and
// provider-specific model id, with a default fallback (spec §4.3
// "Provider selection").
type Registry struct {
	mu            sync.RWMutex
	providers     map[string]Provider
	models        map[string]registeredModel
	defaultModel  string
}

type registeredModel struct {
	provider   string
	providerID string
	vendorTag  string
}

// NewRegistry creates an empty registry with the given default model name.
func NewRegistry(defaultModel string) *Registry {
	return &Registry{
		providers:    make(map[string]Provider),
		models:       make(map[string]registeredModel),
		defaultModel: defaultModel,
	}
}

// RegisterProvider adds a connector under its own Name().
func (r *Registry) RegisterProvider(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// RegisterModel maps a public model name to a provider and its
// provider-specific model id / vendor tag used for usage keys.
func (r *Registry) RegisterModel(modelName, providerName, providerModelID, vendorTag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[modelName] = registeredModel{provider: providerName, providerID: providerModelID, vendorTag: vendorTag}
}

// Resolved is what Resolve returns: the provider to call, the
// provider-specific model id, and the vendor tag for usage recording.
type Resolved struct {
	Provider   Provider
	ProviderID string
	VendorTag  string
	ModelName  string
}

// Resolve maps a requested model name to a configured provider,
// falling back to the registry's default model if the requested one
// is unregistered or its provider lacks credentials, and returning
// false if even the default is unconfigured (spec §4.3).
func (r *Registry) Resolve(modelName string) (Resolved, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rm, ok := r.models[modelName]; ok {
		if p, ok := r.providers[rm.provider]; ok && p.IsConfigured() {
			return Resolved{Provider: p, ProviderID: rm.providerID, VendorTag: rm.vendorTag, ModelName: modelName}, true
		}
	}
	if modelName != r.defaultModel {
		if rm, ok := r.models[r.defaultModel]; ok {
			if p, ok := r.providers[rm.provider]; ok && p.IsConfigured() {
				return Resolved{Provider: p, ProviderID: rm.providerID, VendorTag: rm.vendorTag, ModelName: r.defaultModel}, true
			}
		}
	}
	return Resolved{}, false
}

// Statuses reports each registered provider's configured state, keyed
// by provider name, for the operational health endpoint (spec §6).
func (r *Registry) Statuses() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.providers))
	for name, p := range r.providers {
		out[name] = p.IsConfigured()
	}
	return out
}

// DetectProvider maps a model name to the provider name this engine
// knows for its model family, or "unknown". It does not consult the
// Registry.
func DetectProvider(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "claude"):
		return "anthropic"
	case strings.Contains(m, "gpt") || strings.Contains(m, "o1") || strings.Contains(m, "o3"):
		return "openai"
	case strings.Contains(m, "gemini"):
		return "google"
	case strings.Contains(m, "grok"):
		return "xai"
	default:
		return "unknown"
	}
}

// ErrNotConfigured names the condition where neither the requested nor
// the default provider has credentials present. Resolve reports that
// condition with ok == false rather than with this error.
var ErrNotConfigured = fmt.Errorf("no configured provider available")
