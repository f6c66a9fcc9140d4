package cost

import (
	"sync"

	"go.uber.org/zap"
)

// Usage totals recorded completions.
type Usage struct {
	Calls        int     `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Meter accumulates usage across concurrent completions.
type Meter struct {
	calc *Calculator

	mu    sync.Mutex
	usage Usage
}

// NewMeter creates a Meter. A nil calculator records tokens at zero cost.
func NewMeter(calc *Calculator) *Meter {
	return &Meter{calc: calc}
}

// Record adds one completion and returns its cost.
func (m *Meter) Record(provider, model string, input, output int64) float64 {
	var usd float64
	if m.calc != nil {
		usd = m.calc.Completion(provider, model, input, output)
	}

	m.mu.Lock()
	m.usage.Calls++
	m.usage.InputTokens += input
	m.usage.OutputTokens += output
	m.usage.CostUSD += usd
	m.mu.Unlock()

	zap.L().Info("model usage",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int64("input_tokens", input),
		zap.Int64("output_tokens", output),
		zap.Float64("cost_usd", usd),
	)
	return usd
}

// Usage returns the totals so far.
func (m *Meter) Usage() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}
