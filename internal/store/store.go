// Package store persists research results, the research history and the
// list of casino websites already researched.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casino-research/internal/config"
	"github.com/sells-group/casino-research/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for research runs.
type Store interface {
	// SaveRun stores a result together with its history entry.
	SaveRun(ctx context.Context, result *model.ResearchResult, entry model.HistoryEntry) error
	// Latest returns the most recent result, or ErrNotFound.
	Latest(ctx context.Context) (*model.ResearchResult, error)
	// ListHistory returns history entries newest first. limit <= 0 returns all.
	ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	// DeleteHistory removes a run and its history entry, or returns ErrNotFound.
	DeleteHistory(ctx context.Context, id string) error
	// Reset removes every run, history entry and researched website.
	Reset(ctx context.Context) error

	// ResearchedWebsites lists websites excluded from future discovery.
	ResearchedWebsites(ctx context.Context) ([]string, error)
	// AddResearchedWebsites records websites; duplicates are ignored.
	AddResearchedWebsites(ctx context.Context, websites []string) error

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store selected by cfg.Driver and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// cleanWebsites trims and drops blank and repeated websites.
func cleanWebsites(websites []string) []string {
	seen := make(map[string]bool, len(websites))
	var out []string
	for _, w := range websites {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// comparisonColumns are the columns of the run_comparisons table.
var comparisonColumns = []string{
	"run_id", "position", "casino", "state", "current_offer", "discovered_offer",
	"is_better", "is_new", "difference_notes", "confidence_score", "website",
}

func comparisonRows(runID string, cs []model.OfferComparison) [][]any {
	rows := make([][]any, len(cs))
	for i, c := range cs {
		rows[i] = []any{
			runID, i, c.Casino, string(c.State), c.CurrentOffer, c.DiscoveredOffer,
			c.IsBetter, c.IsNew, c.DifferenceNotes, c.ConfidenceScore, c.DiscoveredCasinoWebsite,
		}
	}
	return rows
}
