package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/archive"
	"github.com/sells-group/casino-research/internal/cache"
	"github.com/sells-group/casino-research/internal/discovery"
	"github.com/sells-group/casino-research/internal/monitoring"
	"github.com/sells-group/casino-research/internal/offers"
	"github.com/sells-group/casino-research/internal/research"
	"github.com/sells-group/casino-research/internal/resilience"
	"github.com/sells-group/casino-research/internal/store"
	"github.com/sells-group/casino-research/pkg/xano"
)

// researchEnv holds the collaborators shared by the research, existing and
// serve commands.
type researchEnv struct {
	Store   store.Store
	Cache   cache.Cache
	Offers  *offers.Loader
	Runner  *research.Runner
	Service *research.Service
	Alerter *monitoring.Alerter
}

// Close flushes pending alerts and releases the store and cache.
func (e *researchEnv) Close() {
	if e.Alerter != nil {
		e.Alerter.Wait()
	}
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// envOptions tunes initResearchEnv.
type envOptions struct {
	notifier research.Notifier
	archive  bool
}

// initStore opens and migrates the configured history store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// initOffers builds the cached existing-offer loader.
func initOffers(ctx context.Context) (*offers.Loader, cache.Cache, error) {
	ttl := time.Duration(cfg.Xano.CacheTTLSecs) * time.Second
	c, err := cache.New(ctx, cfg.Cache, ttl)
	if err != nil {
		return nil, nil, eris.Wrap(err, "init cache")
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.Xano.Retries > 0 {
		retry.MaxAttempts = cfg.Xano.Retries
	}
	retry.OnRetry = resilience.RetryLogger("xano", "fetch_offers")
	client := xano.NewClient(cfg.Xano.URL,
		xano.WithTimeout(time.Duration(cfg.Xano.TimeoutSecs)*time.Second),
		xano.WithRetry(retry),
	)
	return offers.NewLoader(client, c, ttl), c, nil
}

// initResearchEnv wires the store, offer loader, discovery source, runner
// and service. Callers should defer env.Close().
func initResearchEnv(ctx context.Context, mode string, opts envOptions) (*researchEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &researchEnv{Store: st}

	env.Offers, env.Cache, err = initOffers(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}

	source, err := discovery.New(cfg.Discovery)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "init discovery source")
	}
	zap.L().Info("discovery source ready", zap.String("source", source.Name()))

	notifiers := research.Notifiers{}
	if opts.notifier != nil {
		notifiers = append(notifiers, opts.notifier)
	}
	if cfg.Monitoring.WebhookURL != "" {
		env.Alerter = monitoring.NewAlerter(cfg.Monitoring)
		notifiers = append(notifiers, env.Alerter)
	}
	var runnerOpts []research.Option
	if len(notifiers) > 0 {
		runnerOpts = append(runnerOpts, research.WithNotifier(notifiers))
	}
	env.Runner = research.NewRunner(env.Offers, source, cfg.Research, runnerOpts...)

	var svcOpts []research.ServiceOption
	if opts.archive {
		arch, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			env.Close()
			return nil, eris.Wrap(err, "init archive")
		}
		svcOpts = append(svcOpts, research.WithArchiver(arch))
	}
	env.Service = research.NewService(env.Runner, st, svcOpts...)

	return env, nil
}
