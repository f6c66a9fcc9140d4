// Package offers loads the existing offer database and normalizes it for
// reconciliation.
package offers

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/cache"
	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/recon"
	"github.com/sells-group/casino-research/pkg/xano"
)

// SourceName tags offers that came from the existing offer database.
const SourceName = "Xano API"

const snapshotKey = "offers:existing"

// Snapshot is the normalized existing offer set.
type Snapshot struct {
	Offers    []model.PromotionalOffer `json:"offers"`
	Casinos   []model.Casino           `json:"casinos"`
	FetchedAt time.Time                `json:"fetched_at"`
	FromCache bool                     `json:"from_cache"`
}

// Loader fetches existing offers, caching the normalized snapshot.
type Loader struct {
	client xano.Client
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time
}

// NewLoader creates a Loader. A nil cache disables caching.
func NewLoader(client xano.Client, c cache.Cache, ttl time.Duration) *Loader {
	return &Loader{client: client, cache: c, ttl: ttl, now: time.Now}
}

// Load returns the cached snapshot when present, otherwise fetches a fresh one.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	if l.cache != nil {
		var snap Snapshot
		ok, err := cache.GetJSON(ctx, l.cache, snapshotKey, &snap)
		if err != nil {
			zap.L().Warn("offers: cache read failed", zap.Error(err))
		}
		if ok {
			snap.FromCache = true
			return &snap, nil
		}
	}
	return l.Refresh(ctx)
}

// Refresh fetches from the offer API, bypassing and then repopulating the cache.
func (l *Loader) Refresh(ctx context.Context) (*Snapshot, error) {
	records, err := l.client.FetchOffers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "offers: load existing")
	}

	raws := make([]model.RawRecord, len(records))
	for i, r := range records {
		raws[i] = model.RawRecord(r)
	}
	normalized := recon.NormalizeOffers(raws, SourceName)
	snap := &Snapshot{
		Offers:    normalized,
		Casinos:   recon.ExtractCasinosFromOffers(normalized),
		FetchedAt: l.now().UTC(),
	}

	zap.L().Info("offers: loaded existing offers",
		zap.Int("offers", len(snap.Offers)),
		zap.Int("casinos", len(snap.Casinos)),
	)

	if l.cache != nil {
		if err := cache.SetJSON(ctx, l.cache, snapshotKey, snap, l.ttl); err != nil {
			zap.L().Warn("offers: cache write failed", zap.Error(err))
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot.
func (l *Loader) Invalidate(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Delete(ctx, snapshotKey)
}
