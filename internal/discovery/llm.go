package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/cost"
	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/recon"
	"github.com/sells-group/casino-research/internal/resilience"
	"github.com/sells-group/casino-research/pkg/anthropic"
	"github.com/sells-group/casino-research/pkg/jina"
	"github.com/sells-group/casino-research/pkg/openai"
	"github.com/sells-group/casino-research/pkg/perplexity"
)

// Completer sends one system+user prompt to a language model and returns
// the text of its reply.
type Completer interface {
	Provider() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const (
	casinoSystemPrompt = "You are an expert research assistant for US gaming regulations. You provide accurate, structured data in JSON format only."
	offerSystemPrompt  = "You are an expert at researching online casino promotions. You provide accurate, up-to-date promotional information in JSON format only."

	breakerThreshold = 5
	breakerCooldown  = time.Minute

	// maxPageChars caps the website excerpt added to offer prompts.
	maxPageChars = 6000
)

// PageReader fetches the readable text of a web page.
type PageReader interface {
	ReadPage(ctx context.Context, url string) (string, error)
}

// LLMOption configures an LLMSource.
type LLMOption func(*LLMSource)

// WithPageReader grounds offer research on the casino's live website.
func WithPageReader(r PageReader) LLMOption {
	return func(s *LLMSource) { s.pages = r }
}

// UsageReporter is implemented by sources that meter model usage.
type UsageReporter interface {
	Usage() cost.Usage
}

// LLMSource discovers casinos and offers by prompting a language model.
// Consecutive model failures trip a circuit breaker shared by both calls.
type LLMSource struct {
	completer Completer
	meter     *cost.Meter
	pages     PageReader
	breaker   *resilience.Breaker
	now       func() time.Time
}

// NewLLMSource creates a source backed by c. meter may be nil.
func NewLLMSource(c Completer, meter *cost.Meter, opts ...LLMOption) *LLMSource {
	s := &LLMSource{
		completer: c,
		meter:     meter,
		breaker:   resilience.NewBreaker(breakerThreshold, breakerCooldown),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Usage implements UsageReporter.
func (s *LLMSource) Usage() cost.Usage {
	if s.meter == nil {
		return cost.Usage{}
	}
	return s.meter.Usage()
}

// Name implements Source.
func (s *LLMSource) Name() string { return strings.ToLower(s.completer.Provider()) }

func (s *LLMSource) sourceTag() string { return "AI Research - " + s.completer.Provider() }

// DiscoverCasinos implements Source.
func (s *LLMSource) DiscoverCasinos(ctx context.Context, state model.State, exclude []string) ([]model.Casino, error) {
	records, err := s.ask(ctx, casinoSystemPrompt, casinoPrompt(state, exclude))
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: casinos in %s", state)
	}
	out := make([]model.Casino, 0, len(records))
	for _, r := range records {
		r["state"] = string(state)
		r["source"] = s.sourceTag()
		out = append(out, recon.NormalizeCasino(r, s.sourceTag()))
	}
	return FilterExcluded(out, exclude), nil
}

// ResearchOffers implements Source. Each record is stamped with the casino,
// its state and the verification time; source is the casino website or,
// failing that, the offer's terms URL.
func (s *LLMSource) ResearchOffers(ctx context.Context, casino model.Casino) ([]model.RawRecord, error) {
	records, err := s.ask(ctx, offerSystemPrompt, offerPrompt(casino, s.readPage(ctx, casino)))
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: offers for %s", casino.Name)
	}
	verified := s.now().UTC().Format(time.RFC3339)
	for _, r := range records {
		r["casino_name"] = casino.Name
		r["state"] = string(casino.State)
		r["last_verified"] = verified
		delete(r, "source")
		if casino.Website != "" {
			r["source"] = casino.Website
		} else if terms, ok := r["terms_url"].(string); ok && terms != "" {
			r["source"] = terms
		}
	}
	return records, nil
}

// readPage returns an excerpt of the casino website, or "" when no reader
// is configured or the page cannot be read.
func (s *LLMSource) readPage(ctx context.Context, casino model.Casino) string {
	if s.pages == nil || casino.Website == "" {
		return ""
	}
	text, err := s.pages.ReadPage(ctx, casino.Website)
	if err != nil {
		zap.L().Warn("read casino website",
			zap.String("casino", casino.Name),
			zap.String("website", casino.Website),
			zap.Error(err),
		)
		return ""
	}
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > maxPageChars {
		text = string(r[:maxPageChars])
	}
	return text
}

func (s *LLMSource) ask(ctx context.Context, system, prompt string) ([]model.RawRecord, error) {
	text, err := resilience.Execute(ctx, s.breaker, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, system, prompt)
	})
	if err != nil {
		return nil, err
	}
	records, err := parseJSONArray(text)
	if err != nil {
		zap.L().Debug("unparseable model response",
			zap.String("provider", s.completer.Provider()),
			zap.String("response", text),
		)
		return nil, err
	}
	return records, nil
}

// parseJSONArray extracts the JSON array from a model reply, tolerating
// markdown code fences and surrounding prose.
func parseJSONArray(text string) ([]model.RawRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, eris.New("discovery: empty model response")
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, eris.New("discovery: no JSON array in model response")
	}
	var records []model.RawRecord
	if err := json.Unmarshal([]byte(text[start:end+1]), &records); err != nil {
		return nil, eris.Wrap(err, "discovery: parse model response")
	}
	out := records[:0]
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func casinoPrompt(state model.State, exclude []string) string {
	reg := model.RegulatorySources[state]
	var excludeSection string
	if len(exclude) > 0 {
		var b strings.Builder
		b.WriteString("\n8. EXCLUDE these casinos (already researched):")
		for _, w := range exclude {
			b.WriteString("\n   - " + w)
		}
		excludeSection = b.String()
	}

	return fmt.Sprintf(`Task: Find ALL licensed and operational online casinos in %[1]s (%[2]s).

Research Requirements:
1. Focus on CASINO gaming licenses only (NOT sports betting)
2. Use official sources: %[3]s (%[4]s)
3. Include online casinos, mobile casinos, and casino apps
4. Verify each casino is currently operational
5. Only include casinos with real websites that are currently live
6. Do not include placeholder or test sites
7. Exclude casinos with unavailable or suspended websites%[5]s

Return ONLY a JSON array with this structure:
[
  {
    "name": "Casino Name",
    "state": "%[2]s",
    "is_operational": true,
    "license_number": "only if you know the real license number",
    "website": "https://casino-site.com",
    "brand": "Parent Company (if known)"
  }
]

Do not invent license numbers. Do not include sports betting operators unless they also offer casino games.`,
		state.Name(), state, reg.CommissionName, reg.Website, excludeSection)
}

func offerPrompt(casino model.Casino, page string) string {
	var site string
	if casino.Website != "" {
		site = "\nOfficial website: " + casino.Website
	}
	if page != "" {
		site += "\n\nCurrent website content (may be incomplete):\n---\n" + page + "\n---"
	}

	return fmt.Sprintf(`Task: Find the CURRENT promotional offers for %[1]q in %[2]s (%[3]s).%[4]s

Research Requirements:
1. Focus ONLY on CASINO promotions (no sports betting)
2. Find welcome bonuses, deposit bonuses, free spins and no-deposit bonuses
3. Only include current, active promotions
4. Include bonus amounts, match percentages and wagering requirements

Return ONLY a JSON array with this structure:
[
  {
    "casino_name": %[1]q,
    "state": "%[3]s",
    "offer_title": "Welcome Bonus",
    "offer_description": "Detailed description of the offer",
    "bonus_amount": "$100",
    "match_percentage": "100%%",
    "wagering_requirements": "15x",
    "promo_code": "CODE (if applicable)",
    "terms_url": "https://... (if available)"
  }
]

If no current promotions are found, return an empty array [].`,
		casino.Name, casino.State.Name(), casino.State, site)
}

// anthropicCompleter adapts an Anthropic client to Completer.
type anthropicCompleter struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	meter       *cost.Meter
}

// NewAnthropicCompleter returns a Completer backed by Claude. Usage is
// recorded on meter when it is not nil.
func NewAnthropicCompleter(client anthropic.Client, model string, maxTokens int, temperature float64, meter *cost.Meter) Completer {
	if model == "" {
		model = anthropic.DefaultModel
	}
	return &anthropicCompleter{client: client, model: model, maxTokens: int64(maxTokens), temperature: temperature, meter: meter}
}

func (c *anthropicCompleter) Provider() string { return cost.ProviderAnthropic }

func (c *anthropicCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	temp := c.temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	if c.meter != nil {
		c.meter.Record(c.Provider(), c.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	} else {
		resp.Usage.LogUsage(c.model, "discovery")
	}
	return resp.Text(), nil
}

// openaiCompleter adapts an OpenAI client to Completer.
type openaiCompleter struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float32
	meter       *cost.Meter
}

// NewOpenAICompleter returns a Completer backed by an OpenAI chat model.
func NewOpenAICompleter(client openai.Client, model string, maxTokens int, temperature float64, meter *cost.Meter) Completer {
	if model == "" {
		model = openai.DefaultModel
	}
	return &openaiCompleter{client: client, model: model, maxTokens: maxTokens, temperature: float32(temperature), meter: meter}
}

func (c *openaiCompleter) Provider() string { return cost.ProviderOpenAI }

func (c *openaiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.Complete(ctx, openai.ChatRequest{
		Model:       c.model,
		System:      system,
		Prompt:      prompt,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	if c.meter != nil {
		c.meter.Record(c.Provider(), model, int64(resp.PromptTokens), int64(resp.CompletionTokens))
		return resp.Content, nil
	}
	zap.L().Info("openai usage",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("completion_tokens", resp.CompletionTokens),
	)
	return resp.Content, nil
}

// perplexityCompleter adapts a Perplexity client to Completer. Its sonar
// models search the web, so results are restricted to the last month.
type perplexityCompleter struct {
	client      perplexity.Client
	model       string
	maxTokens   int
	temperature float64
	meter       *cost.Meter
}

// NewPerplexityCompleter returns a Completer backed by a Perplexity sonar model.
func NewPerplexityCompleter(client perplexity.Client, model string, maxTokens int, temperature float64, meter *cost.Meter) Completer {
	if model == "" {
		model = perplexity.DefaultModel
	}
	return &perplexityCompleter{client: client, model: model, maxTokens: maxTokens, temperature: temperature, meter: meter}
}

func (c *perplexityCompleter) Provider() string { return cost.ProviderPerplexity }

func (c *perplexityCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	maxTokens, temp := c.maxTokens, c.temperature
	resp, err := c.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: c.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:     &maxTokens,
		Temperature:   &temp,
		SearchRecency: "month",
	})
	if err != nil {
		return "", err
	}
	if c.meter != nil {
		c.meter.Record(c.Provider(), resp.Model, int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
	}
	zap.L().Debug("perplexity citations", zap.Strings("citations", resp.Citations))
	return resp.Text(), nil
}

type jinaReader struct {
	client jina.Client
}

// NewJinaReader returns a PageReader backed by the Jina AI Reader.
func NewJinaReader(client jina.Client) PageReader {
	return &jinaReader{client: client}
}

func (r *jinaReader) ReadPage(ctx context.Context, url string) (string, error) {
	resp, err := r.client.Read(ctx, url)
	if err != nil {
		return "", err
	}
	return resp.Data.Content, nil
}
