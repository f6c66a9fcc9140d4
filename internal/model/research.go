package model

import "time"

// ResearchRequest configures a single research run.
type ResearchRequest struct {
	States                 []State            `json:"states,omitempty"`
	IncludeCasinoDiscovery *bool              `json:"include_casino_discovery,omitempty"`
	IncludeOfferResearch   *bool              `json:"include_offer_research,omitempty"`
	ExcludeCasinoWebsites  []string           `json:"exclude_casino_websites,omitempty"`
	HistoricalOffers       []PromotionalOffer `json:"historical_offers,omitempty"`
}

// DiscoveryEnabled reports whether casino discovery should run (default true).
func (r ResearchRequest) DiscoveryEnabled() bool {
	return r.IncludeCasinoDiscovery == nil || *r.IncludeCasinoDiscovery
}

// OfferResearchEnabled reports whether offer research should run (default true).
func (r ResearchRequest) OfferResearchEnabled() bool {
	return r.IncludeOfferResearch == nil || *r.IncludeOfferResearch
}

// ResolvedStates returns the requested states, or all states when none were given.
func (r ResearchRequest) ResolvedStates() []State {
	if len(r.States) == 0 {
		return AllStates
	}
	return r.States
}

// ResearchResult is the outcome of one research run.
type ResearchResult struct {
	RunID            string             `json:"run_id"`
	Timestamp        time.Time          `json:"timestamp"`
	States           []State            `json:"states"`
	MissingCasinos   map[State][]Casino `json:"missing_casinos"`
	OfferComparisons []OfferComparison  `json:"offer_comparisons"`
	NewOffers        []PromotionalOffer `json:"new_offers"`
	Limitations      []string           `json:"limitations"`
	ExecutionTimeMS  int64              `json:"execution_time_ms"`
	APICallsMade     int                `json:"api_calls_made"`
}

// MissingCasinoCount totals missing casinos across states.
func (r *ResearchResult) MissingCasinoCount() int {
	n := 0
	for _, cs := range r.MissingCasinos {
		n += len(cs)
	}
	return n
}

// BetterOfferCount counts comparisons flagged as better.
func (r *ResearchResult) BetterOfferCount() int {
	n := 0
	for _, c := range r.OfferComparisons {
		if c.IsBetter {
			n++
		}
	}
	return n
}

// HistoryEntry is the summary row appended to the research history per run.
type HistoryEntry struct {
	ID                string             `json:"id"`
	Timestamp         time.Time          `json:"timestamp"`
	States            []State            `json:"states"`
	CasinosFound      int                `json:"casinos_found"`
	OffersFound       int                `json:"offers_found"`
	ComparisonsFound  int                `json:"comparisons_found"`
	BetterOffersFound int                `json:"better_offers_found"`
	Casinos           []Casino           `json:"casinos"`
	NewOffers         []PromotionalOffer `json:"new_offers"`
	Comparisons       []OfferComparison  `json:"comparisons"`
	ExecutionTimeMS   int64              `json:"execution_time_ms"`
	APICallsMade      int                `json:"api_calls_made"`
}
