package recon

import "github.com/sells-group/casino-research/internal/model"

// ExistingDatabaseSource tags casinos derived from the existing offer set.
const ExistingDatabaseSource = "Existing Database"

// FindMissing returns the discovered items whose key is absent from
// existing, preserving discovery order and duplicates.
func FindMissing[T any](discovered, existing []T, key func(T) string) []T {
	known := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		known[key(e)] = struct{}{}
	}
	var out []T
	for _, d := range discovered {
		if _, ok := known[key(d)]; !ok {
			out = append(out, d)
		}
	}
	return out
}

func casinoKey(c model.Casino) string { return CasinoKey(c.Name, c.State) }

// FindMissingCasinos returns discovered casinos not present in existing.
func FindMissingCasinos(discovered, existing []model.Casino) []model.Casino {
	return FindMissing(discovered, existing, casinoKey)
}

// FindNewOffers returns discovered offers whose casino has no existing offer.
func FindNewOffers(discovered, existing []model.PromotionalOffer) []model.PromotionalOffer {
	return FindMissing(discovered, existing, OfferKey)
}

// ExtractCasinosFromOffers derives one casino per distinct (name, state)
// pair in offers, in first-seen order.
func ExtractCasinosFromOffers(offers []model.PromotionalOffer) []model.Casino {
	seen := make(map[string]struct{}, len(offers))
	var out []model.Casino
	for _, o := range offers {
		k := OfferKey(o)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, model.Casino{
			Name:          o.CasinoName,
			State:         o.State,
			IsOperational: true,
			Source:        ExistingDatabaseSource,
		})
	}
	return out
}

// GroupCasinosByState buckets casinos by state. Every supported state is
// present in the result, possibly with an empty list.
func GroupCasinosByState(casinos []model.Casino) map[model.State][]model.Casino {
	out := make(map[model.State][]model.Casino, len(model.AllStates))
	for _, s := range model.AllStates {
		out[s] = []model.Casino{}
	}
	for _, c := range casinos {
		out[c.State] = append(out[c.State], c)
	}
	return out
}

// FilterOffersByState keeps offers in one of states. No states keeps all.
func FilterOffersByState(offers []model.PromotionalOffer, states []model.State) []model.PromotionalOffer {
	if len(states) == 0 {
		return offers
	}
	want := stateSet(states)
	var out []model.PromotionalOffer
	for _, o := range offers {
		if want[o.State] {
			out = append(out, o)
		}
	}
	return out
}

// FilterCasinosByState keeps casinos in one of states. No states keeps all.
func FilterCasinosByState(casinos []model.Casino, states []model.State) []model.Casino {
	if len(states) == 0 {
		return casinos
	}
	want := stateSet(states)
	var out []model.Casino
	for _, c := range casinos {
		if want[c.State] {
			out = append(out, c)
		}
	}
	return out
}

func stateSet(states []model.State) map[model.State]bool {
	m := make(map[model.State]bool, len(states))
	for _, s := range states {
		m[s] = true
	}
	return m
}
