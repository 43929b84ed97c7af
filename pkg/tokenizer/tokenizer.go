package tokenizer

import (
	"strings"
)

// DefaultModel is the chat model the structured text is prepared for.
const DefaultModel = "gpt-4o-mini"

// inputCostPer1K holds USD input pricing per 1K tokens.
var inputCostPer1K = map[string]float64{
	"gpt-4o-mini":   0.00015,
	"gpt-4o":        0.005,
	"gpt-4-turbo":   0.01,
	"gpt-3.5-turbo": 0.0005,
}

// contextWindow holds the input context size in tokens.
var contextWindow = map[string]int{
	"gpt-4o-mini":   128000,
	"gpt-4o":        128000,
	"gpt-4-turbo":   128000,
	"gpt-3.5-turbo": 16385,
}

// CountTokens provides a rough token count estimate.
func CountTokens(text string) int {
	// Rough estimate: ~3 words per 4 tokens for English
	words := strings.Fields(text)
	return max(len(words)*4/3, 1)
}

type Estimate struct {
	Model         string  `json:"model"`
	Tokens        int     `json:"tokens"`
	InputCostUSD  float64 `json:"input_cost_usd"`
	ContextWindow int     `json:"context_window,omitempty"`
	FitsContext   bool    `json:"fits_context"`
}

// EstimateFor returns the approximate size and input cost of text for model.
// Unknown models get a zero cost and are assumed to fit.
func EstimateFor(text, model string) Estimate {
	if model == "" {
		model = DefaultModel
	}
	tokens := CountTokens(text)
	window := contextWindow[model]
	return Estimate{
		Model:         model,
		Tokens:        tokens,
		InputCostUSD:  float64(tokens) / 1000.0 * inputCostPer1K[model],
		ContextWindow: window,
		FitsContext:   window == 0 || tokens <= window,
	}
}
