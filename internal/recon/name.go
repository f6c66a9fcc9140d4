// Package recon reconciles discovered casinos and offers against an existing
// offer dataset: it canonicalizes names, normalizes loosely typed offer
// records, finds missing entities, scores offer differences and deduplicates
// the resulting comparisons. Every function is pure and safe for concurrent use.
package recon

import (
	"regexp"
	"strings"

	"github.com/sells-group/casino-research/internal/model"
)

// noiseTokens are removed from casino names in this order. Earlier tokens may
// consume text later tokens would have matched.
var noiseTokens = []string{
	"online casino", "casino", "online", "sportsbook", "gaming",
	"hotel", "resort", "bet", "the", "and", "&",
}

var noisePatterns = buildNoisePatterns(noiseTokens)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

func buildNoisePatterns(tokens []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(tokens))
	for i, tok := range tokens {
		q := regexp.QuoteMeta(tok)
		if tok == "&" {
			// No word characters, so \b never matches around it.
			out[i] = regexp.MustCompile(q)
			continue
		}
		out[i] = regexp.MustCompile(`(?i)\b` + q + `\b`)
	}
	return out
}

// CanonicalName strips noise words and punctuation from a casino name so that
// "BetMGM Online Casino" and "BetMGM" compare equal. The result is stable:
// CanonicalName(CanonicalName(x)) == CanonicalName(x).
func CanonicalName(name string) string {
	n := stripName(name)
	for {
		next := stripName(n)
		if next == n {
			return n
		}
		n = next
	}
}

func stripName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, re := range noisePatterns {
		n = re.ReplaceAllString(n, "")
	}
	return nonAlphanumeric.ReplaceAllString(n, "")
}

// CasinoKey returns the canonical identity of a casino in a state, in the
// form "{canonical name}-{state}".
func CasinoKey(name string, state model.State) string {
	return CanonicalName(name) + "-" + strings.ToLower(string(state))
}

// OfferKey is the canonical key of an offer's casino.
func OfferKey(o model.PromotionalOffer) string {
	return CasinoKey(o.CasinoName, o.State)
}

// casinoIdentity is the state-free key used when deduplicating comparisons.
func casinoIdentity(name string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "")
}
