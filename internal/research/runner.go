// Package research runs casino and offer research: it loads the existing
// offer database, discovers casinos and offers per state, and reconciles
// the two into a ResearchResult.
package research

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/casino-research/internal/config"
	"github.com/sells-group/casino-research/internal/discovery"
	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/offers"
	"github.com/sells-group/casino-research/internal/recon"
)

// Limitation messages attached to results.
const (
	LimitDiscoveryDisabled = "Casino discovery was disabled for this research run"
	LimitOffersDisabled    = "Promotional offer research was disabled for this research run"
	LimitOffersIncomplete  = "Some promotional offer research could not be completed"
	LimitNoOffers          = "No promotional offers were discovered during this research run"
)

// standingLimitations are appended to every result.
var standingLimitations = []string{
	"Promotional offers change frequently and should be verified regularly",
	"AI research may not capture all available offers or casinos",
	"Data accuracy depends on the availability of public information",
}

// DefaultOfferSource tags researched offers for casinos without a website.
const DefaultOfferSource = "AI Research"

func discoveryLimitation(s model.State) string {
	return "Could not complete casino discovery for " + string(s)
}

// ExistingLoader provides the existing offer snapshot.
type ExistingLoader interface {
	Load(ctx context.Context) (*offers.Snapshot, error)
}

// Runner executes research runs. It is safe for concurrent use; all runs
// share one rate limiter.
type Runner struct {
	existing  ExistingLoader
	source    discovery.Source
	limiter   *rate.Limiter
	batchSize int
	notifier  Notifier
	now       func() time.Time
	newID     func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithNotifier sends run events to n.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithLimiter replaces the default limiter built from the research config.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *Runner) { r.limiter = l }
}

// NewRunner creates a Runner.
func NewRunner(existing ExistingLoader, source discovery.Source, cfg config.ResearchConfig, opts ...Option) *Runner {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 3
	}
	cps := cfg.CallsPerSecond
	if cps <= 0 {
		cps = 1
	}
	r := &Runner{
		existing:  existing,
		source:    source,
		limiter:   rate.NewLimiter(rate.Limit(cps), 1),
		batchSize: batch,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes one research run. Only a failure to load the existing offers
// (or context cancellation) returns an error; discovery and research
// failures are reported as limitations on the result.
func (r *Runner) Run(ctx context.Context, req model.ResearchRequest) (*model.ResearchResult, error) {
	start := r.now()
	states := req.ResolvedStates()
	runID := r.newID()
	log := zap.L().With(zap.String("run_id", runID), zap.String("source", r.source.Name()))

	r.notify(Event{Type: EventStarted, RunID: runID, Timestamp: start.UTC(), States: states})

	res, err := r.run(ctx, log, req, states)
	if err != nil {
		r.notify(Event{Type: EventFailed, RunID: runID, Timestamp: r.now().UTC(), States: states, Error: err.Error()})
		return nil, err
	}

	res.RunID = runID
	res.Timestamp = r.now().UTC()
	res.ExecutionTimeMS = r.now().Sub(start).Milliseconds()

	log.Info("research complete",
		zap.Int("missing_casinos", res.MissingCasinoCount()),
		zap.Int("comparisons", len(res.OfferComparisons)),
		zap.Int("new_offers", len(res.NewOffers)),
		zap.Int("api_calls", res.APICallsMade),
		zap.Int64("execution_time_ms", res.ExecutionTimeMS),
	)
	if ur, ok := r.source.(discovery.UsageReporter); ok {
		u := ur.Usage()
		log.Info("model usage to date",
			zap.Int("calls", u.Calls),
			zap.Int64("input_tokens", u.InputTokens),
			zap.Int64("output_tokens", u.OutputTokens),
			zap.Float64("cost_usd", u.CostUSD),
		)
	}

	r.notify(Event{
		Type:      EventCompleted,
		RunID:     runID,
		Timestamp: res.Timestamp,
		States:    states,
		Summary: &EventSummary{
			MissingCasinos:  res.MissingCasinoCount(),
			Comparisons:     len(res.OfferComparisons),
			BetterOffers:    res.BetterOfferCount(),
			NewOffers:       len(res.NewOffers),
			ExecutionTimeMS: res.ExecutionTimeMS,
		},
	})
	return res, nil
}

func (r *Runner) run(ctx context.Context, log *zap.Logger, req model.ResearchRequest, states []model.State) (*model.ResearchResult, error) {
	res := &model.ResearchResult{
		States:           states,
		OfferComparisons: []model.OfferComparison{},
		NewOffers:        []model.PromotionalOffer{},
		Limitations:      []string{},
	}

	// Step 1: existing offers.
	snap, err := r.existing.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "research: load existing offers")
	}
	if !snap.FromCache {
		res.APICallsMade++
	}
	log.Info("loaded existing offers",
		zap.Int("offers", len(snap.Offers)),
		zap.Int("casinos", len(snap.Casinos)),
		zap.Bool("from_cache", snap.FromCache),
	)

	// Step 2-3: casino discovery and missing casinos.
	var missing []model.Casino
	if req.DiscoveryEnabled() {
		discovered, calls, failed, err := r.discover(ctx, log, states, req.ExcludeCasinoWebsites)
		if err != nil {
			return nil, err
		}
		res.APICallsMade += calls
		for _, s := range failed {
			res.Limitations = append(res.Limitations, discoveryLimitation(s))
		}
		missing = recon.FindMissingCasinos(discovered, snap.Casinos)
	} else {
		res.Limitations = append(res.Limitations, LimitDiscoveryDisabled)
	}
	res.MissingCasinos = recon.GroupCasinosByState(missing)
	log.Info("identified missing casinos", zap.Int("count", len(missing)))

	// Step 4: offer research.
	if !req.OfferResearchEnabled() {
		res.Limitations = append(res.Limitations, LimitOffersDisabled)
		res.Limitations = append(res.Limitations, standingLimitations...)
		return res, nil
	}

	targets := recon.FilterCasinosByState(snap.Casinos, states)
	targets = append(targets, missing...)
	if !req.DiscoveryEnabled() {
		// Casinos are still needed to research offers for; they are not
		// reported as missing.
		temp, calls, _, err := r.discover(ctx, log, states, req.ExcludeCasinoWebsites)
		if err != nil {
			return nil, err
		}
		res.APICallsMade += calls
		targets = append(targets, temp...)
	}

	discovered, calls, incomplete, err := r.researchOffers(ctx, log, targets)
	if err != nil {
		return nil, err
	}
	res.APICallsMade += calls
	if incomplete {
		res.Limitations = append(res.Limitations, LimitOffersIncomplete)
	}
	log.Info("discovered promotional offers", zap.Int("count", len(discovered)))

	// Step 5: reconcile.
	if cs := recon.DedupeComparisons(recon.CompareOffers(discovered, snap.Offers, req.HistoricalOffers)); cs != nil {
		res.OfferComparisons = cs
	}
	// Same known set as CompareOffers so new_offers agrees with is_new.
	known := slices.Concat(snap.Offers, req.HistoricalOffers)
	if nos := recon.FindNewOffers(discovered, known); nos != nil {
		res.NewOffers = nos
	}

	// Step 6: limitations.
	if len(discovered) == 0 {
		res.Limitations = append(res.Limitations, LimitNoOffers)
	}
	res.Limitations = append(res.Limitations, standingLimitations...)
	return res, nil
}

// discover runs casino discovery state by state behind the limiter. It
// returns the casinos found, the number of successful calls and the states
// whose discovery failed.
func (r *Runner) discover(ctx context.Context, log *zap.Logger, states []model.State, exclude []string) ([]model.Casino, int, []model.State, error) {
	var (
		out    []model.Casino
		calls  int
		failed []model.State
	)
	for _, s := range states {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, 0, nil, eris.Wrap(err, "research: discovery rate limit")
		}
		casinos, err := r.source.DiscoverCasinos(ctx, s, exclude)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, nil, eris.Wrap(ctx.Err(), "research: discovery cancelled")
			}
			log.Warn("casino discovery failed", zap.String("state", string(s)), zap.Error(err))
			failed = append(failed, s)
			continue
		}
		calls++
		log.Info("discovered casinos", zap.String("state", string(s)), zap.Int("count", len(casinos)))
		out = append(out, casinos...)
	}
	return out, calls, failed, nil
}

// researchOffers researches casinos concurrently, at most batchSize at a
// time, and normalizes the results in casino order. Every attempted casino
// counts as an API call.
func (r *Runner) researchOffers(ctx context.Context, log *zap.Logger, casinos []model.Casino) ([]model.PromotionalOffer, int, bool, error) {
	if len(casinos) == 0 {
		return nil, 0, false, nil
	}

	perCasino := make([][]model.PromotionalOffer, len(casinos))
	var (
		mu         sync.Mutex
		incomplete bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.batchSize)
	for i, c := range casinos {
		g.Go(func() error {
			if err := r.limiter.Wait(gctx); err != nil {
				return eris.Wrap(err, "research: offer rate limit")
			}
			raws, err := r.source.ResearchOffers(gctx, c)
			if err != nil {
				if gctx.Err() != nil {
					return eris.Wrap(gctx.Err(), "research: offer research cancelled")
				}
				log.Warn("offer research failed",
					zap.String("casino", c.Name),
					zap.String("state", string(c.State)),
					zap.Error(err),
				)
				mu.Lock()
				incomplete = true
				mu.Unlock()
				return nil
			}
			source := c.Website
			if source == "" {
				source = DefaultOfferSource
			}
			perCasino[i] = recon.NormalizeOffers(raws, source)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, false, err
	}

	var out []model.PromotionalOffer
	for _, batch := range perCasino {
		out = append(out, batch...)
	}
	return out, len(casinos), incomplete, nil
}

func (r *Runner) notify(e Event) {
	if r.notifier != nil {
		r.notifier.Notify(e)
	}
}
