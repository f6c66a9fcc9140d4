package research

import (
	"math"
	"time"

	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/recon"
)

// Summarize builds the history entry recorded for a result. Missing
// casinos are flattened in state order.
func Summarize(res *model.ResearchResult) model.HistoryEntry {
	var casinos []model.Casino
	for _, s := range model.AllStates {
		casinos = append(casinos, res.MissingCasinos[s]...)
	}
	if casinos == nil {
		casinos = []model.Casino{}
	}
	return model.HistoryEntry{
		ID:                res.RunID,
		Timestamp:         res.Timestamp,
		States:            res.States,
		CasinosFound:      len(casinos),
		OffersFound:       len(res.NewOffers),
		ComparisonsFound:  len(res.OfferComparisons),
		BetterOffersFound: res.BetterOfferCount(),
		Casinos:           casinos,
		NewOffers:         res.NewOffers,
		Comparisons:       res.OfferComparisons,
		ExecutionTimeMS:   res.ExecutionTimeMS,
		APICallsMade:      res.APICallsMade,
	}
}

// StateStats counts discoveries in one state.
type StateStats struct {
	Casinos int `json:"casinos"`
	Offers  int `json:"offers"`
}

// Stats aggregates research history for the analytics view.
type Stats struct {
	TotalRuns         int                        `json:"total_runs"`
	TotalCasinos      int                        `json:"total_casinos"`
	TotalOffers       int                        `json:"total_offers"`
	TotalComparisons  int                        `json:"total_comparisons"`
	BetterOffers      int                        `json:"better_offers"`
	StatesCovered     int                        `json:"states_covered"`
	APICallsMade      int                        `json:"api_calls_made"`
	AverageConfidence float64                    `json:"average_confidence"`
	ByState           map[model.State]StateStats `json:"by_state"`
	ByCategory        map[string]int             `json:"by_category"`
	LastRun           *time.Time                 `json:"last_run,omitempty"`
}

// Analytics aggregates history entries. Offers are categorized by title;
// average confidence is over every comparison, rounded to one decimal.
func Analytics(history []model.HistoryEntry) Stats {
	st := Stats{
		TotalRuns: len(history),
		ByState:   make(map[model.State]StateStats, len(model.AllStates)),
		ByCategory: map[string]int{
			recon.CategoryWelcome:   0,
			recon.CategoryNoDeposit: 0,
			recon.CategoryFreeSpins: 0,
			recon.CategoryReload:    0,
		},
	}
	for _, s := range model.AllStates {
		st.ByState[s] = StateStats{}
	}

	var confSum int
	for _, h := range history {
		st.TotalCasinos += h.CasinosFound
		st.TotalOffers += h.OffersFound
		st.TotalComparisons += len(h.Comparisons)
		st.BetterOffers += h.BetterOffersFound
		st.APICallsMade += h.APICallsMade

		for _, c := range h.Casinos {
			ss := st.ByState[c.State]
			ss.Casinos++
			st.ByState[c.State] = ss
		}
		for _, o := range h.NewOffers {
			ss := st.ByState[o.State]
			ss.Offers++
			st.ByState[o.State] = ss
			st.ByCategory[recon.CategorizeOfferType(o.OfferTitle)]++
		}
		for _, c := range h.Comparisons {
			confSum += c.ConfidenceScore
		}
		if st.LastRun == nil || h.Timestamp.After(*st.LastRun) {
			ts := h.Timestamp
			st.LastRun = &ts
		}
	}

	for _, ss := range st.ByState {
		if ss.Casinos > 0 || ss.Offers > 0 {
			st.StatesCovered++
		}
	}
	if st.TotalComparisons > 0 {
		st.AverageConfidence = math.Round(float64(confSum)/float64(st.TotalComparisons)*10) / 10
	}
	return st
}
