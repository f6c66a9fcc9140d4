package recon

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/casino-research/internal/model"
)

const (
	baseConfidence     = 95
	textOnlyConfidence = 75
	perfectConfidence  = 98
	matchedFloor       = 85
	minConfidence      = 60
	maxConfidence      = 98
	missingSidePenalty = 5
	promoPenalty       = 3
	titlePenalty       = 10
	sparseCompareCut   = 15
	sparseCompareFloor = 70
	maxNotesShown      = 2
	noteSeparator      = " • "
	similarOfferNote   = "Similar offer"
	offerUpdatedNote   = "Offer updated"
	newCodeNotePrefix  = "New code: "
	matchedRatio       = 0.5
)

// Difference is the outcome of comparing a discovered offer with the
// existing offer for the same casino.
type Difference struct {
	IsBetter    bool
	IsDifferent bool
	Notes       string
	Confidence  int
}

// Reportable reports whether the difference is worth surfacing.
func (d Difference) Reportable() bool { return d.IsBetter || d.IsDifferent }

// dimension is one numeric axis of an offer.
type dimension struct {
	value         func(model.PromotionalOffer) *float64
	lowerIsBetter bool
	better        func(delta string) string
	worse         func(delta string) string
}

var dimensions = []dimension{
	{
		value:  BonusValue,
		better: func(d string) string { return "+$" + d + " bonus" },
		worse:  func(d string) string { return "-$" + d + " bonus" },
	},
	{
		value:  MatchValue,
		better: func(d string) string { return "+" + d + "% match" },
		worse:  func(d string) string { return "-" + d + "% match" },
	},
	{
		value:         WageringValue,
		lowerIsBetter: true,
		better:        func(d string) string { return d + "x lower wagering" },
		worse:         func(d string) string { return d + "x higher wagering" },
	},
}

// AnalyzeOfferDifference scores a discovered offer against the existing
// offer for the same casino. Bonus, match and wagering are compared
// numerically (lower wagering is better), then promo code and title.
// Confidence reflects how many numeric fields could actually be compared.
func AnalyzeOfferDifference(existing, discovered model.PromotionalOffer) Difference {
	var (
		d        Difference
		notes    []string
		compared int
		matched  int
	)
	confidence := baseConfidence

	for _, dim := range dimensions {
		ev, dv := dim.value(existing), dim.value(discovered)
		switch {
		case ev == nil && dv == nil:
		case ev == nil || dv == nil:
			confidence -= missingSidePenalty
		default:
			compared++
			delta := *dv - *ev
			if dim.lowerIsBetter {
				delta = -delta
			}
			abs := strconv.FormatFloat(math.Abs(*dv-*ev), 'f', -1, 64)
			switch {
			case delta > 0:
				d.IsBetter = true
				notes = append(notes, dim.better(abs))
			case delta < 0:
				d.IsDifferent = true
				notes = append(notes, dim.worse(abs))
			default:
				matched++
			}
		}
	}

	ep, dp := strings.TrimSpace(existing.PromoCode), strings.TrimSpace(discovered.PromoCode)
	if ep != "" && dp != "" && !strings.EqualFold(ep, dp) {
		d.IsDifferent = true
		notes = append(notes, newCodeNotePrefix+dp)
		confidence -= promoPenalty
	}

	if titleChanged(existing.OfferTitle, discovered.OfferTitle) {
		d.IsDifferent = true
		notes = append(notes, offerUpdatedNote)
		confidence -= titlePenalty
	}

	d.Confidence = rebaseConfidence(confidence, compared, matched, len(notes))
	d.Notes = joinNotes(notes)
	return d
}

// titleChanged ignores a discovered placeholder title; an untitled existing
// offer still counts as changed once a real title is discovered.
func titleChanged(existing, discovered string) bool {
	n := strings.TrimSpace(discovered)
	if n == "" || n == UntitledOffer {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(existing), n)
}

func rebaseConfidence(confidence, compared, matched, notes int) int {
	if compared == 0 {
		confidence = textOnlyConfidence
	} else {
		ratio := float64(matched) / float64(compared)
		switch {
		case matched == compared && notes == 0:
			confidence = perfectConfidence
		case ratio >= matchedRatio:
			confidence = max(confidence, matchedFloor)
		}
		if compared < 2 {
			confidence = min(confidence, max(confidence-sparseCompareCut, sparseCompareFloor))
		}
	}
	return min(max(confidence, minConfidence), maxConfidence)
}

func joinNotes(notes []string) string {
	if len(notes) == 0 {
		return similarOfferNote
	}
	shown := notes
	if len(shown) > maxNotesShown {
		shown = shown[:maxNotesShown]
	}
	s := strings.Join(shown, noteSeparator)
	if extra := len(notes) - len(shown); extra > 0 {
		s += fmt.Sprintf(" +%d more", extra)
	}
	return s
}
