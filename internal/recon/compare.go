package recon

import (
	"fmt"

	"github.com/sells-group/casino-research/internal/model"
)

// NewOfferConfidence is the confidence of every comparison for a casino
// that has no existing offer.
const NewOfferConfidence = 85

// CompareOffers matches each discovered offer to the existing offer for the
// same casino and state. Historical offers are searched alongside existing
// ones. When several known offers share a casino, the one with the larger
// bonus is used. Discovered offers with no counterpart yield is_new
// comparisons; matched offers are reported only when they differ.
func CompareOffers(discovered, existing, historical []model.PromotionalOffer) []model.OfferComparison {
	known := make([]model.PromotionalOffer, 0, len(existing)+len(historical))
	known = append(known, existing...)
	known = append(known, historical...)
	lookup := indexOffers(known)

	var out []model.OfferComparison
	for _, d := range discovered {
		current, ok := lookup[OfferKey(d)]
		if !ok {
			out = append(out, newOfferComparison(d, len(known)))
			continue
		}
		diff := AnalyzeOfferDifference(current, d)
		if !diff.Reportable() {
			continue
		}
		summary := FormatOfferSummary(current)
		c := baseComparison(d)
		c.CurrentOffer = &summary
		c.IsBetter = diff.IsBetter
		c.DifferenceNotes = diff.Notes
		c.ConfidenceScore = diff.Confidence
		out = append(out, c)
	}
	return out
}

// indexOffers keys offers by casino, keeping the larger bonus on collision.
// A missing bonus loses to any present one; ties keep the first offer.
func indexOffers(offers []model.PromotionalOffer) map[string]model.PromotionalOffer {
	m := make(map[string]model.PromotionalOffer, len(offers))
	for _, o := range offers {
		k := OfferKey(o)
		prev, ok := m[k]
		if !ok || biggerBonus(o, prev) {
			m[k] = o
		}
	}
	return m
}

func biggerBonus(a, b model.PromotionalOffer) bool {
	av, bv := BonusValue(a), BonusValue(b)
	switch {
	case av == nil:
		return false
	case bv == nil:
		return true
	default:
		return *av > *bv
	}
}

func newOfferComparison(d model.PromotionalOffer, searched int) model.OfferComparison {
	c := baseComparison(d)
	c.IsNew = true
	c.DifferenceNotes = fmt.Sprintf("New casino offer - not found among %d existing offers", searched)
	c.ConfidenceScore = NewOfferConfidence
	return c
}

func baseComparison(d model.PromotionalOffer) model.OfferComparison {
	return model.OfferComparison{
		Casino:                  d.CasinoName,
		State:                   d.State,
		DiscoveredOffer:         FormatOfferSummary(d),
		DiscoveredCasinoWebsite: d.Source,
		DiscoveredOfferDetails: &model.OfferDetails{
			BonusAmount:          d.BonusAmount,
			MatchPercentage:      d.MatchPercentage,
			WageringRequirements: d.WageringRequirements,
			PromoCode:            d.PromoCode,
		},
	}
}
