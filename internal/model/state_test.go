package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseState(t *testing.T) {
	tests := []struct {
		input string
		want  State
		ok    bool
	}{
		{"NJ", StateNJ, true},
		{" pa ", StatePA, true},
		{"Michigan", StateMI, true},
		{"WEST VIRGINIA", StateWV, true},
		{"NY", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseState(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveState(t *testing.T) {
	assert.Equal(t, StateMI, ResolveState("mi"))
	assert.Equal(t, DefaultState, ResolveState("Nevada"))
	assert.Equal(t, StateNJ, ResolveState(""))
}

func TestParseStates(t *testing.T) {
	assert.Equal(t, []State{StatePA, StateNJ}, ParseStates([]string{"pa", "XX", "New Jersey", "PA"}))
	assert.Empty(t, ParseStates(nil))
}

func TestStateName(t *testing.T) {
	assert.Equal(t, "Pennsylvania", StatePA.Name())
	assert.Equal(t, "TX", State("TX").Name())
	assert.True(t, StateWV.Valid())
	assert.False(t, State("TX").Valid())
}

func TestResearchRequestDefaults(t *testing.T) {
	var r ResearchRequest
	assert.True(t, r.DiscoveryEnabled())
	assert.True(t, r.OfferResearchEnabled())
	assert.Equal(t, AllStates, r.ResolvedStates())

	off := false
	r = ResearchRequest{IncludeCasinoDiscovery: &off, States: []State{StateMI}}
	assert.False(t, r.DiscoveryEnabled())
	assert.Equal(t, []State{StateMI}, r.ResolvedStates())
}

func TestResearchResultCounts(t *testing.T) {
	r := &ResearchResult{
		MissingCasinos: map[State][]Casino{
			StateNJ: {{Name: "A"}, {Name: "B"}},
			StateMI: {},
			StatePA: {{Name: "C"}},
		},
		OfferComparisons: []OfferComparison{{IsBetter: true}, {}, {IsBetter: true}},
	}
	assert.Equal(t, 3, r.MissingCasinoCount())
	assert.Equal(t, 2, r.BetterOfferCount())
}
