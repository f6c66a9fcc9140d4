package export

import (
	"time"

	"github.com/sells-group/casino-research/internal/model"
)

func strPtr(s string) *string { return &s }

func sampleResult() *model.ResearchResult {
	return &model.ResearchResult{
		RunID:     "run-1",
		Timestamp: time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC),
		States:    []model.State{model.StateNJ, model.StatePA},
		MissingCasinos: map[model.State][]model.Casino{
			model.StateNJ: {},
			model.StatePA: {{Name: "Ocean Casino", State: model.StatePA, Website: "https://oceancasino.com", IsOperational: true, Source: "Fixture Data"}},
		},
		OfferComparisons: []model.OfferComparison{
			{
				Casino:                  "BetMGM",
				State:                   model.StateNJ,
				CurrentOffer:            strPtr("$1,000 • 100% match • 15x"),
				DiscoveredOffer:         "$1,500 • 100% match • 15x",
				IsBetter:                true,
				DifferenceNotes:         "+$500 bonus",
				ConfidenceScore:         95,
				DiscoveredCasinoWebsite: "https://casino.betmgm.com",
			},
			{
				Casino:          "Ocean Casino",
				State:           model.StatePA,
				DiscoveredOffer: "$500",
				IsNew:           true,
				DifferenceNotes: "New casino offer",
				ConfidenceScore: 85,
			},
			{
				Casino:          "Borgata",
				State:           model.StateNJ,
				CurrentOffer:    strPtr("$500"),
				DiscoveredOffer: "$400",
				DifferenceNotes: "-$100 bonus",
				ConfidenceScore: 70,
			},
		},
		NewOffers: []model.PromotionalOffer{
			{CasinoName: "Ocean Casino", State: model.StatePA, OfferTitle: "Deposit Match", BonusAmount: "$500"},
		},
		Limitations:     []string{"Offer data may be incomplete"},
		ExecutionTimeMS: 1234,
		APICallsMade:    5,
	}
}
