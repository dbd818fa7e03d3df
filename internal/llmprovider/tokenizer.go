package llmprovider

import "strings"

// TokenStrategy selects the character-per-token ratio used to
// estimate token counts without a real tokenizer (tiktoken/sentencepiece
// require CGo or WASM, out of scope here — estimation is good enough
// for budgeting max_tokens and pre-call cost projection).
type TokenStrategy int

const (
	StrategyDefault TokenStrategy = iota
	StrategyAnthropic
	StrategyOpenAI
	StrategyGemini
)

// charsPerToken are rough English-text averages per provider family.
var charsPerToken = map[TokenStrategy]float64{
	StrategyDefault:   4.0,
	StrategyAnthropic: 3.8,
	StrategyOpenAI:    4.0,
	StrategyGemini:    4.2,
}

// TokenCounter estimates token counts for a provider family.
type TokenCounter struct {
	strategy TokenStrategy
}

// NewTokenCounter picks a strategy from a registered provider name.
func NewTokenCounter(providerName string) *TokenCounter {
	return &TokenCounter{strategy: resolveStrategy(providerName)}
}

func resolveStrategy(providerName string) TokenStrategy {
	switch strings.ToLower(providerName) {
	case "anthropic":
		return StrategyAnthropic
	case "openai", "xai":
		return StrategyOpenAI
	case "google":
		return StrategyGemini
	default:
		return StrategyDefault
	}
}

// CountText estimates the token count of a single string.
func (tc *TokenCounter) CountText(text string) int {
	if text == "" {
		return 0
	}
	ratio := charsPerToken[tc.strategy]
	return int(float64(len(text))/ratio) + 1
}

// CountMessages estimates the total token count of a message list,
// including a small per-message role/formatting overhead.
func (tc *TokenCounter) CountMessages(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += tc.countMessage(m)
	}
	return total + messageOverhead
}

// messageOverhead approximates the fixed formatting tokens (role
// marker, separators) every provider wraps around a message list.
const messageOverhead = 3

func (tc *TokenCounter) countMessage(m Message) int {
	return tc.CountText(m.Content) + 4
}

// EstimateGeneration returns the input token estimate for a message
// list and, given a maxTokens budget, the worst-case total the call
// could consume — used to pre-flight a cost estimate before the
// provider reports real usage.
func (tc *TokenCounter) EstimateGeneration(messages []Message, maxTokens int) (inputTokens, worstCaseTotal int) {
	inputTokens = tc.CountMessages(messages)
	return inputTokens, inputTokens + maxTokens
}
