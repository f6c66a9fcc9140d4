// Package cost prices language-model token usage.
package cost

import "strings"

// Provider names as reported by the discovery completers.
const (
	ProviderAnthropic  = "Anthropic"
	ProviderOpenAI     = "OpenAI"
	ProviderPerplexity = "Perplexity"
)

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates holds per-provider pricing keyed by model name.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
	Perplexity map[string]ModelRate `yaml:"perplexity" mapstructure:"perplexity"`
}

// Calculator computes costs for model usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Completion returns the cost of one completion. Unknown providers and
// models cost 0.
func (c *Calculator) Completion(provider, model string, input, output int64) float64 {
	rate, ok := c.rate(provider, model)
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

func (c *Calculator) rate(provider, model string) (ModelRate, bool) {
	var table map[string]ModelRate
	switch {
	case strings.EqualFold(provider, ProviderAnthropic):
		table = c.rates.Anthropic
	case strings.EqualFold(provider, ProviderOpenAI):
		table = c.rates.OpenAI
	case strings.EqualFold(provider, ProviderPerplexity):
		table = c.rates.Perplexity
	default:
		return ModelRate{}, false
	}
	if r, ok := table[model]; ok {
		return r, true
	}
	// OpenAI reports dated snapshots, e.g. gpt-4o-mini-2024-07-18.
	best, found := "", false
	for name := range table {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best, found = name, true
		}
	}
	if !found {
		return ModelRate{}, false
	}
	return table[best], true
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
		},
		OpenAI: map[string]ModelRate{
			"gpt-4o":      {Input: 2.50, Output: 10.00},
			"gpt-4o-mini": {Input: 0.15, Output: 0.60},
		},
		Perplexity: map[string]ModelRate{
			"sonar":     {Input: 1.00, Output: 1.00},
			"sonar-pro": {Input: 3.00, Output: 15.00},
		},
	}
}
