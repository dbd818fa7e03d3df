// Package orchestrator implements the Summary Orchestrator: turning a
// scored candidate list into a single LLM call and a rendered HTML
// summary, with provider fallback, token budgeting, and cost
// recording (spec §4.3).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/newsbrief/engine/internal/llmprovider"
	"github.com/newsbrief/engine/internal/model"
	"github.com/newsbrief/engine/internal/scoring"
	"github.com/rs/zerolog"
)

// maxTokensCeiling bounds the token budget formula (spec §4.3).
const maxTokensCeiling = 4096

// UsageEvent is one successful call's cost-accounting record (spec
// §4.3 "Cost recording").
type UsageEvent struct {
	Provider     string
	ModelID      string
	Feature      string
	InputTokens  int
	OutputTokens int
	CostMicro    int64
	UserID       string
}

// UsageRecorder persists UsageEvent records. Implemented by
// internal/usage against the LLM:* Redis key table (spec §6).
type UsageRecorder interface {
	RecordLLMUsage(ctx context.Context, event UsageEvent) error
}

// Orchestrator produces briefing HTML from scored candidates.
type Orchestrator struct {
	registry *llmprovider.Registry
	pricing  *llmprovider.PricingConfig
	usage    UsageRecorder
	log      zerolog.Logger
}

// New builds an Orchestrator.
func New(registry *llmprovider.Registry, pricing *llmprovider.PricingConfig, usage UsageRecorder, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		pricing:  pricing,
		usage:    usage,
		log:      log.With().Str("component", "orchestrator").Logger(),
	}
}

// Result is a successful call's rendered output plus the metadata the
// Briefing Worker persists alongside it.
type Result struct {
	HTML     string
	Metadata model.BriefingMetadata
}

// Generate builds the prompt pair, resolves a provider, issues the
// call, and records cost. A nil Result with a nil error means every
// configured provider declined without a hard failure (spec §4.3
// "abort with a null result"); a non-nil error means something
// outside the declared provider-exception taxonomy went wrong.
func (o *Orchestrator) Generate(ctx context.Context, userID string, candidates []scoring.Candidate, stories map[string]*model.Story, feedTitleFor func(string) string, prefs *model.BriefingPreferences) (*Result, error) {
	enabled := prefs.Sections
	rows := buildCandidateRows(candidates, stories, feedTitleFor, enabled)

	systemPrompt := buildSystemPrompt(prefs)
	userPrompt := buildUserPrompt(rows)

	messages := []llmprovider.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	maxTokens := tokenBudget(len(candidates), len(enabledSectionKeys(prefs)))

	resolved, ok := o.registry.Resolve(prefs.BriefingModel)
	if !ok {
		o.log.Warn().Str("user_id", userID).Str("requested_model", prefs.BriefingModel).Msg("no configured provider available")
		return nil, nil
	}

	html, err := resolved.Provider.Generate(ctx, messages, resolved.ProviderID, maxTokens)
	if err != nil {
		if isDeclaredProviderError(err) {
			o.log.Warn().Err(err).Str("provider", resolved.Provider.Name()).Str("user_id", userID).Msg("provider call failed")
			return nil, nil
		}
		return nil, fmt.Errorf("orchestrator: generate: %w", err)
	}

	html = stripCodeFence(html)

	usage := resolved.Provider.LastUsage()
	_, costMicro := o.pricing.CalculateCost(resolved.ModelName, usage.InputTokens, usage.OutputTokens)

	if o.usage != nil {
		event := UsageEvent{
			Provider:     resolved.Provider.Name(),
			ModelID:      resolved.ProviderID,
			Feature:      "daily_briefing",
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			CostMicro:    costMicro,
			UserID:       userID,
		}
		if err := o.usage.RecordLLMUsage(ctx, event); err != nil {
			o.log.Warn().Err(err).Msg("record llm usage")
		}
	}

	return &Result{
		HTML: html,
		Metadata: model.BriefingMetadata{
			Model:        resolved.ModelName,
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
		},
	}, nil
}

// tokenBudget implements spec §4.3's formula:
// max_tokens = min(1024 + 80*candidates + 100*enabled_sections, 4096).
func tokenBudget(candidateCount, enabledSections int) int {
	budget := 1024 + 80*candidateCount + 100*enabledSections
	if budget > maxTokensCeiling {
		return maxTokensCeiling
	}
	return budget
}

// stripCodeFence removes a leading ```lang fence and trailing ```
// fence if present, then trims whitespace (spec §4.3 "Output
// post-processing").
func stripCodeFence(html string) string {
	s := strings.TrimSpace(html)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl != -1 {
			s = s[nl+1:]
		} else {
			s = ""
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// isDeclaredProviderError reports whether err is one of the provider
// exceptions spec §4.3's error taxonomy traps: every error a
// connector's Generate returns is a declared network/API failure, not
// a programming error, so all of them are trapped here — except
// context cancellation/deadline, which signal the caller shutting the
// whole run down and must propagate rather than read as "this one
// provider declined".
func isDeclaredProviderError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
