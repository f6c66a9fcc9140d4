// Package discovery finds licensed online casinos per state and researches
// their current promotional offers.
package discovery

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casino-research/internal/config"
	"github.com/sells-group/casino-research/internal/cost"
	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/pkg/anthropic"
	"github.com/sells-group/casino-research/pkg/jina"
	"github.com/sells-group/casino-research/pkg/openai"
	"github.com/sells-group/casino-research/pkg/perplexity"
)

// Source discovers casinos and their offers.
type Source interface {
	// Name identifies the source in logs and limitation messages.
	Name() string
	// DiscoverCasinos lists operational casinos in state, skipping any whose
	// website matches an entry in exclude.
	DiscoverCasinos(ctx context.Context, state model.State, exclude []string) ([]model.Casino, error)
	// ResearchOffers returns the raw offer records found for casino.
	ResearchOffers(ctx context.Context, casino model.Casino) ([]model.RawRecord, error)
}

// New builds the Source selected by cfg.Provider. Model-backed sources
// meter token usage at the default rates.
func New(cfg config.DiscoveryConfig) (Source, error) {
	meter := cost.NewMeter(cost.NewCalculator(cost.DefaultRates()))
	var opts []LLMOption
	if cfg.ReadWebsites {
		opts = append(opts, WithPageReader(NewJinaReader(jina.NewClient(cfg.JinaKey))))
	}
	switch cfg.Provider {
	case "", "fixture":
		if cfg.FixturePath == "" {
			return DefaultFixture()
		}
		return LoadFixture(cfg.FixturePath)
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, eris.New("discovery: anthropic key is required")
		}
		c := NewAnthropicCompleter(anthropic.NewClient(cfg.AnthropicKey), cfg.Model, cfg.MaxTokens, cfg.Temperature, meter)
		return NewLLMSource(c, meter, opts...), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, eris.New("discovery: openai key is required")
		}
		client := openai.NewClient(cfg.OpenAIKey, openai.WithBaseURL(cfg.OpenAIBaseURL))
		c := NewOpenAICompleter(client, cfg.Model, cfg.MaxTokens, cfg.Temperature, meter)
		return NewLLMSource(c, meter, opts...), nil
	case "perplexity":
		if cfg.PerplexityKey == "" {
			return nil, eris.New("discovery: perplexity key is required")
		}
		client := perplexity.NewClient(cfg.PerplexityKey, perplexity.WithBaseURL(cfg.PerplexityBaseURL))
		c := NewPerplexityCompleter(client, cfg.Model, cfg.MaxTokens, cfg.Temperature, meter)
		return NewLLMSource(c, meter, opts...), nil
	default:
		return nil, eris.Errorf("discovery: unknown provider %q", cfg.Provider)
	}
}

// FilterExcluded drops casinos whose website equals or contains one of the
// excluded websites. Scheme, trailing slash and case are ignored. Casinos
// without a website are always kept.
func FilterExcluded(casinos []model.Casino, exclude []string) []model.Casino {
	if len(exclude) == 0 {
		return casinos
	}
	ex := make([]string, 0, len(exclude))
	for _, e := range exclude {
		if n := normalizeWebsite(e); n != "" {
			ex = append(ex, n)
		}
	}
	out := make([]model.Casino, 0, len(casinos))
	for _, c := range casinos {
		if !excluded(normalizeWebsite(c.Website), ex) {
			out = append(out, c)
		}
	}
	return out
}

func excluded(site string, ex []string) bool {
	if site == "" {
		return false
	}
	for _, e := range ex {
		if site == e || strings.Contains(site, e) {
			return true
		}
	}
	return false
}

func normalizeWebsite(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimSuffix(s, "/")
}
