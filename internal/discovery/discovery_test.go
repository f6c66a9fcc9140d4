package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/casino-research/internal/config"
	"github.com/sells-group/casino-research/internal/model"
)

func TestFilterExcluded(t *testing.T) {
	casinos := []model.Casino{
		{Name: "BetMGM", Website: "https://casino.betmgm.com/en/nj/"},
		{Name: "Borgata", Website: "http://Casino.BorgataOnline.com"},
		{Name: "No Site"},
		{Name: "Ocean", Website: "https://www.oceanonlinecasino.com"},
	}

	tests := []struct {
		name    string
		exclude []string
		want    []string
	}{
		{"no exclusions", nil, []string{"BetMGM", "Borgata", "No Site", "Ocean"}},
		{"exact after normalization", []string{"casino.borgataonline.com/"}, []string{"BetMGM", "No Site", "Ocean"}},
		{"containing match", []string{"https://casino.betmgm.com"}, []string{"Borgata", "No Site", "Ocean"}},
		{"blank entries ignored", []string{"", "  "}, []string{"BetMGM", "Borgata", "No Site", "Ocean"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, c := range FilterExcluded(casinos, tt.exclude) {
				got = append(got, c.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DiscoveryConfig
		want    string
		wantErr string
	}{
		{"default fixture", config.DiscoveryConfig{}, "fixture", ""},
		{"anthropic", config.DiscoveryConfig{Provider: "anthropic", AnthropicKey: "sk-ant"}, "anthropic", ""},
		{"openai", config.DiscoveryConfig{Provider: "openai", OpenAIKey: "sk-oai"}, "openai", ""},
		{"perplexity", config.DiscoveryConfig{Provider: "perplexity", PerplexityKey: "pplx"}, "perplexity", ""},
		{"perplexity without key", config.DiscoveryConfig{Provider: "perplexity"}, "", "perplexity key is required"},
		{"anthropic without key", config.DiscoveryConfig{Provider: "anthropic"}, "", "anthropic key is required"},
		{"openai without key", config.DiscoveryConfig{Provider: "openai"}, "", "openai key is required"},
		{"unknown", config.DiscoveryConfig{Provider: "bard"}, "", "unknown provider"},
		{"missing fixture file", config.DiscoveryConfig{Provider: "fixture", FixturePath: "/nonexistent/offers.yaml"}, "", "fixture: read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, src.Name())
		})
	}
}
