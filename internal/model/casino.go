// Package model defines the casino, offer and research result types shared
// across the reconciliation core and its collaborators.
package model

// Casino is a licensed online casino operating in one state.
type Casino struct {
	Name          string `json:"name"`
	State         State  `json:"state"`
	LicenseNumber string `json:"license_number,omitempty"`
	Brand         string `json:"brand,omitempty"`
	Website       string `json:"website,omitempty"`
	IsOperational bool   `json:"is_operational"`
	Source        string `json:"source,omitempty"`
}

// PromotionalOffer is the canonical shape of a casino promotion. Numeric
// fields are kept as display strings ("$100", "150%", "20x").
type PromotionalOffer struct {
	ID                   string `json:"id,omitempty" yaml:"id,omitempty"`
	CasinoName           string `json:"casino_name" yaml:"casino_name"`
	State                State  `json:"state" yaml:"state"`
	OfferTitle           string `json:"offer_title" yaml:"offer_title"`
	OfferDescription     string `json:"offer_description" yaml:"offer_description"`
	BonusAmount          string `json:"bonus_amount,omitempty" yaml:"bonus_amount,omitempty"`
	MatchPercentage      string `json:"match_percentage,omitempty" yaml:"match_percentage,omitempty"`
	WageringRequirements string `json:"wagering_requirements,omitempty" yaml:"wagering_requirements,omitempty"`
	PromoCode            string `json:"promo_code,omitempty" yaml:"promo_code,omitempty"`
	ExpirationDate       string `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`
	TermsURL             string `json:"terms_url,omitempty" yaml:"terms_url,omitempty"`
	LastVerified         string `json:"last_verified,omitempty" yaml:"last_verified,omitempty"`
	Source               string `json:"source,omitempty" yaml:"source,omitempty"`
}

// OfferDetails carries the raw discovered offer fields on a comparison so
// that comparisons can be deduplicated and displayed later.
type OfferDetails struct {
	BonusAmount          string `json:"bonus_amount,omitempty"`
	MatchPercentage      string `json:"match_percentage,omitempty"`
	WageringRequirements string `json:"wagering_requirements,omitempty"`
	PromoCode            string `json:"promo_code,omitempty"`
}

// Empty reports whether no detail field is set.
func (d OfferDetails) Empty() bool {
	return d.BonusAmount == "" && d.MatchPercentage == "" && d.WageringRequirements == "" && d.PromoCode == ""
}

// OfferComparison describes one discovered offer relative to its existing
// counterpart. CurrentOffer is nil when IsNew is true.
type OfferComparison struct {
	Casino                  string        `json:"casino"`
	State                   State         `json:"state"`
	CurrentOffer            *string       `json:"current_offer"`
	DiscoveredOffer         string        `json:"discovered_offer"`
	IsBetter                bool          `json:"is_better"`
	IsNew                   bool          `json:"is_new"`
	DifferenceNotes         string        `json:"difference_notes"`
	ConfidenceScore         int           `json:"confidence_score"`
	DiscoveredCasinoWebsite string        `json:"discovered_casino_website,omitempty"`
	DiscoveredOfferDetails  *OfferDetails `json:"discovered_offer_details,omitempty"`
}

// RawRecord is one loosely typed casino or offer record from an external
// source. Only the normalizers in package recon read its fields.
type RawRecord map[string]any
