package recon

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/casino-research/internal/model"
)

var unitChars = regexp.MustCompile(`(?i)[$,%x]`)

// firstNumber is the longest parseable prefix, so "500..." yields 500 and
// "1.2.3" yields 1.2.
var firstNumber = regexp.MustCompile(`\d+(?:\.\d*)?|\.\d+`)

// ExtractNumericValue parses the magnitude out of a display string such as
// "$1,234", "200%" or "20x wagering". It returns nil when the value is empty
// or holds no parseable number; nil never means zero. Inner whitespace is
// kept, so "15x 30 days" yields 15.
//
// Units are discarded, so "$100" and "100%" both yield 100. Use the
// field-specific helpers below instead of comparing across fields.
func ExtractNumericValue(value string) *float64 {
	if value == "" {
		return nil
	}
	cleaned := strings.TrimSpace(unitChars.ReplaceAllString(value, ""))
	m := firstNumber.FindString(cleaned)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}

// BonusValue extracts the bonus amount of an offer.
func BonusValue(o model.PromotionalOffer) *float64 {
	return ExtractNumericValue(o.BonusAmount)
}

// MatchValue extracts the deposit match percentage of an offer.
func MatchValue(o model.PromotionalOffer) *float64 {
	return ExtractNumericValue(o.MatchPercentage)
}

// WageringValue extracts the wagering multiplier of an offer.
func WageringValue(o model.PromotionalOffer) *float64 {
	return ExtractNumericValue(o.WageringRequirements)
}
