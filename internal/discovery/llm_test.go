package discovery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/casino-research/internal/cost"
	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/recon"
	"github.com/sells-group/casino-research/internal/resilience"
	"github.com/sells-group/casino-research/pkg/anthropic"
	"github.com/sells-group/casino-research/pkg/jina"
	"github.com/sells-group/casino-research/pkg/openai"
	"github.com/sells-group/casino-research/pkg/perplexity"
)

// fakeCompleter returns canned replies and records prompts.
type fakeCompleter struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeCompleter) Provider() string { return "Fake" }

func (f *fakeCompleter) Complete(_ context.Context, _ string, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestParseJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    int
		wantErr string
	}{
		{"plain", `[{"name":"A"},{"name":"B"}]`, 2, ""},
		{"fenced", "```json\n[{\"name\":\"A\"}]\n```", 1, ""},
		{"prose around", "Here you go:\n[{\"name\":\"A\"}]\nHope this helps.", 1, ""},
		{"empty array", "[]", 0, ""},
		{"null entries dropped", `[null, {"name":"A"}]`, 1, ""},
		{"empty", "   ", 0, "empty model response"},
		{"no array", `{"name":"A"}`, 0, "no JSON array"},
		{"invalid", `[{"name":}]`, 0, "parse model response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseJSONArray(tt.text)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestLLMSource_DiscoverCasinos(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n" + `[
		{"name": "BetMGM Casino", "state": "PA", "website": "https://casino.betmgm.com/en/nj", "brand": "MGM"},
		{"name": "Ocean Online Casino", "website": "https://oceanonlinecasino.com", "is_operational": false, "source": "made up"},
		{"name": "Borgata", "license_number": "NJ-123"}
	]` + "\n```"}
	src := NewLLMSource(fc, nil)

	casinos, err := src.DiscoverCasinos(context.Background(), model.StateNJ, []string{"casino.betmgm.com"})
	require.NoError(t, err)
	require.Len(t, casinos, 2)

	assert.Equal(t, "Ocean Online Casino", casinos[0].Name)
	assert.Equal(t, model.StateNJ, casinos[0].State)
	assert.False(t, casinos[0].IsOperational)
	assert.Equal(t, "AI Research - Fake", casinos[0].Source)

	assert.Equal(t, "Borgata", casinos[1].Name)
	assert.True(t, casinos[1].IsOperational)
	assert.Equal(t, "NJ-123", casinos[1].LicenseNumber)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "New Jersey (NJ)")
	assert.Contains(t, fc.prompts[0], "New Jersey Division of Gaming Enforcement")
	assert.Contains(t, fc.prompts[0], "EXCLUDE these casinos")
	assert.Contains(t, fc.prompts[0], "   - casino.betmgm.com")
}

func TestLLMSource_ResearchOffers(t *testing.T) {
	fc := &fakeCompleter{reply: `[
		{"offer_title": "Welcome Bonus", "bonus_amount": "$1,000", "casino_name": "wrong", "state": "MI", "source": "model"},
		{"offer_title": "Spins", "terms_url": "https://terms.example"}
	]`}
	src := NewLLMSource(fc, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return fixed }

	t.Run("website as source", func(t *testing.T) {
		casino := model.Casino{Name: "Borgata", State: model.StateNJ, Website: "https://borgata.example"}
		records, err := src.ResearchOffers(context.Background(), casino)
		require.NoError(t, err)
		require.Len(t, records, 2)

		o := recon.NormalizeOffer(records[0], "AI Research")
		assert.Equal(t, "Borgata", o.CasinoName)
		assert.Equal(t, model.StateNJ, o.State)
		assert.Equal(t, "$1,000", o.BonusAmount)
		assert.Equal(t, "2026-03-01T12:00:00Z", o.LastVerified)
		assert.Equal(t, "https://borgata.example", o.Source)
		assert.Contains(t, fc.prompts[len(fc.prompts)-1], "Official website: https://borgata.example")
	})

	t.Run("terms url as source", func(t *testing.T) {
		casino := model.Casino{Name: "Borgata", State: model.StateNJ}
		records, err := src.ResearchOffers(context.Background(), casino)
		require.NoError(t, err)

		assert.NotContains(t, records[0], "source")
		assert.Equal(t, "AI Research", recon.NormalizeOffer(records[0], "AI Research").Source)
		assert.Equal(t, "https://terms.example", records[1]["source"])
	})
}

func TestLLMSource_BreakerOpensAfterFailures(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("rate limited")}
	src := NewLLMSource(fc, nil)

	for i := 0; i < breakerThreshold; i++ {
		_, err := src.DiscoverCasinos(context.Background(), model.StateMI, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "discovery: casinos in MI")
	}

	_, err := src.ResearchOffers(context.Background(), model.Casino{Name: "X", State: model.StateMI})
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, breakerThreshold, fc.calls)
}

type mockAnthropic struct {
	req  anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (m *mockAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.req = req
	return m.resp, m.err
}

func TestAnthropicCompleter(t *testing.T) {
	m := &mockAnthropic{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "[]"}},
	}}
	c := NewAnthropicCompleter(m, "", 4000, 0.1, nil)

	text, err := c.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
	assert.Equal(t, "Anthropic", c.Provider())
	assert.Equal(t, anthropic.DefaultModel, m.req.Model)
	assert.Equal(t, int64(4000), m.req.MaxTokens)
	assert.Equal(t, "sys", m.req.System)
	require.NotNil(t, m.req.Temperature)
	assert.InDelta(t, 0.1, *m.req.Temperature, 1e-9)

	m.err = errors.New("boom")
	_, err = c.Complete(context.Background(), "sys", "prompt")
	assert.Error(t, err)
}

type mockOpenAI struct {
	req  openai.ChatRequest
	resp *openai.ChatResponse
	err  error
}

func (m *mockOpenAI) Complete(_ context.Context, req openai.ChatRequest) (*openai.ChatResponse, error) {
	m.req = req
	return m.resp, m.err
}

func TestOpenAICompleter(t *testing.T) {
	m := &mockOpenAI{resp: &openai.ChatResponse{Content: `[{"name":"A"}]`}}
	c := NewOpenAICompleter(m, "gpt-4o", 2000, 0.3, nil)

	text, err := c.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"A"}]`, text)
	assert.Equal(t, "OpenAI", c.Provider())
	assert.Equal(t, "gpt-4o", m.req.Model)
	assert.Equal(t, 2000, m.req.MaxTokens)
	assert.Equal(t, "prompt", m.req.Prompt)

	m.err = errors.New("boom")
	_, err = c.Complete(context.Background(), "sys", "prompt")
	assert.Error(t, err)
}

func TestCompleters_RecordUsage(t *testing.T) {
	meter := cost.NewMeter(cost.NewCalculator(cost.DefaultRates()))

	am := &mockAnthropic{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "[]"}},
		Usage:   anthropic.TokenUsage{InputTokens: 1000000, OutputTokens: 100000},
	}}
	_, err := NewAnthropicCompleter(am, "claude-sonnet-4-5-20250929", 4000, 0.1, meter).Complete(context.Background(), "sys", "p")
	require.NoError(t, err)

	om := &mockOpenAI{resp: &openai.ChatResponse{Content: "[]", Model: "gpt-4o-mini-2024-07-18", PromptTokens: 1000000, CompletionTokens: 1000000}}
	_, err = NewOpenAICompleter(om, "gpt-4o-mini", 2000, 0.1, meter).Complete(context.Background(), "sys", "p")
	require.NoError(t, err)

	src := NewLLMSource(&fakeCompleter{reply: "[]"}, meter)
	u := src.Usage()
	assert.Equal(t, 2, u.Calls)
	assert.Equal(t, int64(2000000), u.InputTokens)
	assert.InDelta(t, 3.00+1.50+0.15+0.60, u.CostUSD, 1e-6)

	assert.Zero(t, NewLLMSource(&fakeCompleter{}, nil).Usage())
}

type mockPerplexity struct {
	req  perplexity.ChatCompletionRequest
	resp *perplexity.ChatCompletionResponse
	err  error
}

func (m *mockPerplexity) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	m.req = req
	return m.resp, m.err
}

func TestPerplexityCompleter(t *testing.T) {
	m := &mockPerplexity{resp: &perplexity.ChatCompletionResponse{
		Model:   "sonar-pro",
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: "[]"}}},
		Usage:   perplexity.Usage{PromptTokens: 1000000, CompletionTokens: 0},
	}}
	meter := cost.NewMeter(cost.NewCalculator(cost.DefaultRates()))
	c := NewPerplexityCompleter(m, "", 3000, 0.2, meter)

	text, err := c.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
	assert.Equal(t, "Perplexity", c.Provider())
	assert.Equal(t, perplexity.DefaultModel, m.req.Model)
	assert.Equal(t, "month", m.req.SearchRecency)
	require.Len(t, m.req.Messages, 2)
	assert.Equal(t, "system", m.req.Messages[0].Role)
	assert.Equal(t, "prompt", m.req.Messages[1].Content)
	require.NotNil(t, m.req.MaxTokens)
	assert.Equal(t, 3000, *m.req.MaxTokens)
	assert.InDelta(t, 3.00, meter.Usage().CostUSD, 1e-6)

	m.err = errors.New("boom")
	_, err = c.Complete(context.Background(), "sys", "prompt")
	assert.Error(t, err)
}

type fakePages struct {
	text string
	err  error
	urls []string
}

func (f *fakePages) ReadPage(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.text, f.err
}

func TestLLMSource_ResearchOffersWithPageReader(t *testing.T) {
	casino := model.Casino{Name: "Borgata", State: model.StateNJ, Website: "https://borgata.example"}

	t.Run("page text added to prompt", func(t *testing.T) {
		fc := &fakeCompleter{reply: "[]"}
		pages := &fakePages{text: "  # Promotions\n100% up to $1,000  " + strings.Repeat("x", maxPageChars)}
		src := NewLLMSource(fc, nil, WithPageReader(pages))

		_, err := src.ResearchOffers(context.Background(), casino)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://borgata.example"}, pages.urls)
		assert.Contains(t, fc.prompts[0], "Current website content (may be incomplete):\n---\n# Promotions\n100% up to $1,000")
		assert.NotContains(t, fc.prompts[0], strings.Repeat("x", maxPageChars))
	})

	t.Run("read failure is ignored", func(t *testing.T) {
		fc := &fakeCompleter{reply: "[]"}
		src := NewLLMSource(fc, nil, WithPageReader(&fakePages{err: errors.New("blocked")}))

		_, err := src.ResearchOffers(context.Background(), casino)
		require.NoError(t, err)
		assert.NotContains(t, fc.prompts[0], "Current website content")
	})

	t.Run("no website skips reader", func(t *testing.T) {
		pages := &fakePages{text: "ignored"}
		src := NewLLMSource(&fakeCompleter{reply: "[]"}, nil, WithPageReader(pages))

		_, err := src.ResearchOffers(context.Background(), model.Casino{Name: "X", State: model.StateNJ})
		require.NoError(t, err)
		assert.Empty(t, pages.urls)
	})
}

type mockJina struct{ resp *jina.ReadResponse }

func (m *mockJina) Read(_ context.Context, _ string) (*jina.ReadResponse, error) { return m.resp, nil }

func TestJinaReader(t *testing.T) {
	r := NewJinaReader(&mockJina{resp: &jina.ReadResponse{Data: jina.ReadData{Content: "markdown"}}})
	text, err := r.ReadPage(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, "markdown", text)
}
