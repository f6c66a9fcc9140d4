package recon

import (
	"strings"

	"github.com/sells-group/casino-research/internal/model"
)

const noDetailsKey = "no-details"

// DedupeComparisons collapses comparisons describing the same casino and
// discovered offer details, keeping the one with the highest confidence.
// Ties keep the first; output follows first-occurrence order.
func DedupeComparisons(cs []model.OfferComparison) []model.OfferComparison {
	best := make(map[string]int, len(cs))
	var out []model.OfferComparison
	for _, c := range cs {
		k := dedupeKey(c)
		i, ok := best[k]
		if !ok {
			best[k] = len(out)
			out = append(out, c)
			continue
		}
		if c.ConfidenceScore > out[i].ConfidenceScore {
			out[i] = c
		}
	}
	return out
}

func dedupeKey(c model.OfferComparison) string {
	details := noDetailsKey
	if d := c.DiscoveredOfferDetails; d != nil && !d.Empty() {
		var parts []string
		for _, f := range []string{d.BonusAmount, d.MatchPercentage, d.WageringRequirements, d.PromoCode} {
			if f != "" {
				parts = append(parts, f)
			}
		}
		details = strings.Join(parts, "|")
	}
	return casinoIdentity(c.Casino) + "|" + details
}
