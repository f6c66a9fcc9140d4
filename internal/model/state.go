package model

import "strings"

// State is a two-letter code for a US state with regulated online casinos.
type State string

const (
	StateNJ State = "NJ"
	StateMI State = "MI"
	StatePA State = "PA"
	StateWV State = "WV"
)

// DefaultState is used when a record's state cannot be resolved.
const DefaultState = StateNJ

// AllStates lists every supported state in display order.
var AllStates = []State{StateNJ, StateMI, StatePA, StateWV}

// StateNames maps each state code to its full name.
var StateNames = map[State]string{
	StateNJ: "New Jersey",
	StateMI: "Michigan",
	StatePA: "Pennsylvania",
	StateWV: "West Virginia",
}

// RegulatorySource identifies the gaming regulator for a state.
type RegulatorySource struct {
	State          State  `json:"state"`
	CommissionName string `json:"commission_name"`
	Website        string `json:"website"`
}

// RegulatorySources lists the regulator consulted for each state.
var RegulatorySources = map[State]RegulatorySource{
	StateNJ: {State: StateNJ, CommissionName: "New Jersey Division of Gaming Enforcement", Website: "https://www.nj.gov/oag/ge/"},
	StateMI: {State: StateMI, CommissionName: "Michigan Gaming Control Board", Website: "https://www.michigan.gov/mgcb"},
	StatePA: {State: StatePA, CommissionName: "Pennsylvania Gaming Control Board", Website: "https://gamingcontrolboard.pa.gov/"},
	StateWV: {State: StateWV, CommissionName: "West Virginia Lottery Commission", Website: "https://www.wvlottery.com/"},
}

// Name returns the full state name, or the code itself when unknown.
func (s State) Name() string {
	if n, ok := StateNames[s]; ok {
		return n
	}
	return string(s)
}

// Valid reports whether s is one of the supported states.
func (s State) Valid() bool {
	_, ok := StateNames[s]
	return ok
}

// ParseState resolves a state code or full state name, case-insensitively.
func ParseState(raw string) (State, bool) {
	n := strings.ToUpper(strings.TrimSpace(raw))
	if n == "" {
		return "", false
	}
	for code, name := range StateNames {
		if n == string(code) || n == strings.ToUpper(name) {
			return code, true
		}
	}
	return "", false
}

// ResolveState is ParseState with a fallback to DefaultState.
func ResolveState(raw string) State {
	if s, ok := ParseState(raw); ok {
		return s
	}
	return DefaultState
}

// ParseStates parses a list of state codes, dropping unknown and duplicate
// entries. An empty result means "all states".
func ParseStates(raw []string) []State {
	seen := make(map[State]bool, len(raw))
	var out []State
	for _, r := range raw {
		s, ok := ParseState(r)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
