package recon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/casino-research/internal/model"
)

func TestNormalizeOffer_FlatShape(t *testing.T) {
	raw := model.RawRecord{
		"id":                    "rec-1",
		"casino_name":           "Golden Nugget",
		"state":                 "NJ",
		"offer_title":           "Welcome Bonus",
		"offer_description":     "Deposit match up to $1,000",
		"bonus_amount":          "$1,000",
		"match_percentage":      "100%",
		"wagering_requirements": "15x",
		"promo_code":            "GN1000",
		"terms_url":             "https://example.com/terms",
	}

	o := NormalizeOffer(raw, "Xano API")

	assert.Equal(t, "rec-1", o.ID)
	assert.Equal(t, "Golden Nugget", o.CasinoName)
	assert.Equal(t, model.StateNJ, o.State)
	assert.Equal(t, "Welcome Bonus", o.OfferTitle)
	assert.Equal(t, "Deposit match up to $1,000", o.OfferDescription)
	assert.Equal(t, "$1,000", o.BonusAmount)
	assert.Equal(t, "100%", o.MatchPercentage)
	assert.Equal(t, "15x", o.WageringRequirements)
	assert.Equal(t, "GN1000", o.PromoCode)
	assert.Equal(t, "https://example.com/terms", o.TermsURL)
	assert.Equal(t, "Xano API", o.Source)
}

func TestNormalizeOffer_LegacyShape(t *testing.T) {
	raw := model.RawRecord{
		"id":               float64(42),
		"Name":             "BetMGM",
		"Offer_Name":       "Deposit Match",
		"Expected_Deposit": float64(1000),
		"Expected_Bonus":   float64(1500),
		"state":            map[string]any{"Abbreviation": "MI", "Name": "Michigan"},
	}

	o := NormalizeOffer(raw, "Xano API")

	assert.Equal(t, "42", o.ID)
	assert.Equal(t, "BetMGM", o.CasinoName)
	assert.Equal(t, "Deposit Match", o.OfferTitle)
	assert.Equal(t, "Deposit Match", o.OfferDescription)
	assert.Equal(t, model.StateMI, o.State)
	assert.Equal(t, "$1,500", o.BonusAmount)
	assert.Equal(t, "150%", o.MatchPercentage)
}

func TestNormalizeOffer_FromJSON(t *testing.T) {
	body := `{"Name":"Borgata","Offer_Name":"Reload","Expected_Deposit":0,"Expected_Bonus":1234.5,"state":{"Name":"Pennsylvania"}}`
	var raw model.RawRecord
	require.NoError(t, json.Unmarshal([]byte(body), &raw))

	o := NormalizeOffer(raw, "Xano API")

	assert.Equal(t, model.StatePA, o.State)
	assert.Equal(t, "$1,234.50", o.BonusAmount)
	assert.Empty(t, o.MatchPercentage, "zero deposit must not produce a match")
}

func TestNormalizeOffer_Defaults(t *testing.T) {
	tests := []struct {
		name string
		raw  model.RawRecord
	}{
		{name: "nil record", raw: nil},
		{name: "empty record", raw: model.RawRecord{}},
		{name: "wrong types", raw: model.RawRecord{"casino_name": true, "state": 7, "offer_title": []any{"x"}}},
		{name: "unknown state", raw: model.RawRecord{"state": "XX", "offer_title": "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NormalizeOffer(tt.raw, "fixture")
			assert.Equal(t, UnknownCasino, o.CasinoName)
			assert.Equal(t, UntitledOffer, o.OfferTitle)
			assert.Equal(t, UntitledOffer, o.OfferDescription)
			assert.Equal(t, model.DefaultState, o.State)
			assert.Empty(t, o.BonusAmount)
			assert.Empty(t, o.MatchPercentage)
			assert.Equal(t, "fixture", o.Source)
		})
	}
}

func TestNormalizeOffer_NumericDisplayFields(t *testing.T) {
	raw := model.RawRecord{
		"casino":                "DraftKings",
		"offer_type":            "Free Spins",
		"bonus_amount":          250,
		"match_percentage":      float64(100),
		"wagering_requirements": json.Number("20"),
		"state":                 "west virginia",
		"source":                "https://draftkings.example",
	}

	o := NormalizeOffer(raw, "AI Research")

	assert.Equal(t, "DraftKings", o.CasinoName)
	assert.Equal(t, "Free Spins", o.OfferTitle)
	assert.Equal(t, "$250", o.BonusAmount)
	assert.Equal(t, "100%", o.MatchPercentage)
	assert.Equal(t, "20x", o.WageringRequirements)
	assert.Equal(t, model.StateWV, o.State)
	assert.Equal(t, "https://draftkings.example", o.Source, "record source wins over provenance")
}

func TestNormalizeOffer_ExplicitMatchWins(t *testing.T) {
	raw := model.RawRecord{
		"Name":             "Ocean",
		"match_percentage": "200%",
		"Expected_Deposit": float64(100),
		"Expected_Bonus":   float64(100),
	}
	assert.Equal(t, "200%", NormalizeOffer(raw, "").MatchPercentage)
}

func TestNormalizeOffers(t *testing.T) {
	raws := []model.RawRecord{{"casino_name": "A"}, {"casino_name": "B"}}
	out := NormalizeOffers(raws, "Xano API")
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].CasinoName)
	assert.Equal(t, "B", out[1].CasinoName)
	assert.Empty(t, NormalizeOffers(nil, "x"))
}

func TestNormalizeCasino(t *testing.T) {
	c := NormalizeCasino(model.RawRecord{
		"name":           "Hard Rock",
		"state":          "NJ",
		"website":        "https://hardrock.example",
		"license_number": "NJ-123",
	}, "AI Research - fixture")

	assert.Equal(t, "Hard Rock", c.Name)
	assert.Equal(t, model.StateNJ, c.State)
	assert.Equal(t, "NJ-123", c.LicenseNumber)
	assert.True(t, c.IsOperational)
	assert.Equal(t, "AI Research - fixture", c.Source)

	closed := NormalizeCasino(model.RawRecord{"name": "Closed", "is_operational": false}, "")
	assert.False(t, closed.IsOperational)

	fromString := NormalizeCasino(model.RawRecord{"name": "Maybe", "is_operational": "false"}, "")
	assert.False(t, fromString.IsOperational)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$1,234", formatCurrency(1234))
	assert.Equal(t, "$50", formatCurrency(50))
	assert.Equal(t, "$12.50", formatCurrency(12.5))
	assert.Equal(t, "$1,000,000", formatCurrency(1e6))
	assert.Equal(t, "-$7.25", formatCurrency(-7.25))
	assert.Equal(t, "$100,000,000,000,000,000,000", formatCurrency(1e20))
}

func TestNormalizeOffer_HugeLegacyBonus(t *testing.T) {
	o := NormalizeOffer(model.RawRecord{"Name": "Borgata", "Expected_Bonus": 1e20}, "db")
	assert.Equal(t, "$100,000,000,000,000,000,000", o.BonusAmount)
	require.NotNil(t, BonusValue(o))
	assert.InDelta(t, 1e20, *BonusValue(o), 1e6)
}

func TestNormalizeOffer_BlankBonusFallsBackToExpected(t *testing.T) {
	for _, blank := range []any{"", "   ", nil} {
		o := NormalizeOffer(model.RawRecord{"Name": "Borgata", "bonus_amount": blank, "Expected_Bonus": 250}, "db")
		assert.Equal(t, "$250", o.BonusAmount, "bonus_amount=%q", blank)
	}
}
