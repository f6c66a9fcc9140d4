package recon

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/casino-research/internal/model"
)

const (
	// UnknownCasino is the casino name used when a record carries none.
	UnknownCasino = "Unknown Casino"
	// UntitledOffer is the placeholder title of an offer without one.
	UntitledOffer = "Untitled Offer"
)

// NormalizeOffer converts one loosely typed record into a PromotionalOffer.
// It accepts both the flat offer shape and the legacy database shape
// ({Name, Offer_Name, Expected_Bonus, Expected_Deposit, state:{Abbreviation}}).
// Missing fields fall back to defaults; it never fails.
func NormalizeOffer(raw model.RawRecord, source string) model.PromotionalOffer {
	title := textField(raw, "offer_title", "Offer_Name", "offer_type")
	if title == "" {
		title = UntitledOffer
	}
	desc := textField(raw, "offer_description")
	if desc == "" {
		desc = title
	}

	o := model.PromotionalOffer{
		ID:                   textField(raw, "id", "ID"),
		CasinoName:           textField(raw, "casino_name", "Name", "name", "casino"),
		State:                stateField(raw),
		OfferTitle:           title,
		OfferDescription:     desc,
		BonusAmount:          bonusField(raw),
		MatchPercentage:      matchField(raw),
		WageringRequirements: unitField(raw, "x", "wagering_requirements"),
		PromoCode:            textField(raw, "promo_code"),
		ExpirationDate:       textField(raw, "expiration_date"),
		TermsURL:             textField(raw, "terms_url"),
		LastVerified:         textField(raw, "last_verified"),
		Source:               textField(raw, "source"),
	}
	if o.CasinoName == "" {
		o.CasinoName = UnknownCasino
	}
	if o.Source == "" {
		o.Source = source
	}
	return o
}

// NormalizeOffers normalizes every record with the same provenance.
func NormalizeOffers(raws []model.RawRecord, source string) []model.PromotionalOffer {
	out := make([]model.PromotionalOffer, 0, len(raws))
	for _, r := range raws {
		out = append(out, NormalizeOffer(r, source))
	}
	return out
}

// NormalizeCasino converts a discovery record into a Casino. IsOperational
// defaults to true when the record does not say otherwise.
func NormalizeCasino(raw model.RawRecord, source string) model.Casino {
	c := model.Casino{
		Name:          textField(raw, "name", "casino_name", "Name", "casino"),
		State:         stateField(raw),
		LicenseNumber: textField(raw, "license_number"),
		Brand:         textField(raw, "brand"),
		Website:       textField(raw, "website"),
		IsOperational: true,
		Source:        textField(raw, "source"),
	}
	if c.Name == "" {
		c.Name = UnknownCasino
	}
	if b, ok := boolValue(raw["is_operational"]); ok {
		c.IsOperational = b
	}
	if c.Source == "" {
		c.Source = source
	}
	return c
}

func bonusField(raw model.RawRecord) string {
	switch v := raw["bonus_amount"].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case nil:
	default:
		if f, ok := numberValue(v); ok {
			return formatCurrency(f)
		}
	}
	if f, ok := numberValue(raw["Expected_Bonus"]); ok && f != 0 {
		return formatCurrency(f)
	}
	return ""
}

func matchField(raw model.RawRecord) string {
	if s := unitField(raw, "%", "match_percentage"); s != "" {
		return s
	}
	bonus, ok := numberValue(raw["Expected_Bonus"])
	if !ok || bonus == 0 {
		return ""
	}
	deposit, ok := numberValue(raw["Expected_Deposit"])
	if !ok || deposit == 0 {
		return ""
	}
	return strconv.FormatFloat(math.Round(bonus/deposit*100), 'f', -1, 64) + "%"
}

// unitField reads a display field, rendering bare numbers with the unit suffix.
func unitField(raw model.RawRecord, unit string, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		if f, ok := numberValue(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64) + unit
		}
	}
	return ""
}

// textField returns the first non-empty value among keys as a string.
func textField(raw model.RawRecord, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case nil:
		default:
			if f, ok := numberValue(v); ok {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
	}
	return ""
}

// stateField resolves "state" given as a code, a full name, or an object
// with Abbreviation/Name fields. Unresolvable values fall back to the
// default state.
func stateField(raw model.RawRecord) model.State {
	for _, k := range []string{"state", "State"} {
		switch v := raw[k].(type) {
		case string:
			if s, ok := model.ParseState(v); ok {
				return s
			}
		case model.State:
			if s, ok := model.ParseState(string(v)); ok {
				return s
			}
		case map[string]any:
			for _, sub := range []string{"Abbreviation", "abbreviation", "Name", "name"} {
				if str, ok := v[sub].(string); ok {
					if s, ok := model.ParseState(str); ok {
						return s
					}
				}
			}
		}
	}
	return model.DefaultState
}

func numberValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		p, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		p := ExtractNumericValue(n)
		if p == nil {
			return 0, false
		}
		f = *p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func boolValue(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		p, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false
		}
		return p, true
	default:
		return false, false
	}
}

// formatCurrency renders a dollar amount with thousands separators, e.g.
// "$1,234" or "$12.50". Whole amounts drop the cents.
func formatCurrency(v float64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	s := message.NewPrinter(language.English).Sprintf("%.2f", v)
	return sign + "$" + strings.TrimSuffix(s, ".00")
}
