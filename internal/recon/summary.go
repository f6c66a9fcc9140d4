package recon

import (
	"strings"

	"github.com/sells-group/casino-research/internal/model"
)

// Offer categories used for analytics and fixture titles.
const (
	CategoryFreeSpins = "Free Spins Bonus"
	CategoryNoDeposit = "No Deposit Bonus"
	CategoryReload    = "Reload Bonus"
	CategoryWelcome   = "Welcome Bonus"
)

// FormatOfferSummary renders an offer as "title | bonus | 100% match | 20x
// wagering", omitting absent parts. Offers without any of those fall back
// to the description.
func FormatOfferSummary(o model.PromotionalOffer) string {
	var parts []string
	if o.OfferTitle != "" && o.OfferTitle != UntitledOffer {
		parts = append(parts, o.OfferTitle)
	}
	if o.BonusAmount != "" {
		parts = append(parts, o.BonusAmount)
	}
	if o.MatchPercentage != "" {
		parts = append(parts, o.MatchPercentage+" match")
	}
	if o.WageringRequirements != "" {
		parts = append(parts, o.WageringRequirements+" wagering")
	}
	if len(parts) > 0 {
		return strings.Join(parts, " | ")
	}
	if o.OfferDescription != "" {
		return o.OfferDescription
	}
	return "No details available"
}

// CategorizeOfferType maps a free-form offer type or title to one of the
// offer categories. Free spins are checked first so that "free spins on
// deposit" style wording does not land in a deposit category.
func CategorizeOfferType(offerType string) string {
	t := strings.ToLower(offerType)
	switch {
	case strings.Contains(t, "free spin"), strings.Contains(t, "freespin"),
		strings.Contains(t, "spin") && !strings.Contains(t, "deposit"):
		return CategoryFreeSpins
	case strings.Contains(t, "no deposit"), strings.Contains(t, "no-deposit"):
		return CategoryNoDeposit
	case strings.Contains(t, "reload"), strings.Contains(t, "weekend"):
		return CategoryReload
	default:
		return CategoryWelcome
	}
}
