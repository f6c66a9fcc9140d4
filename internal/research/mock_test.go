package research

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/offers"
)

type mockLoader struct {
	snap *offers.Snapshot
	err  error
}

func (m *mockLoader) Load(_ context.Context) (*offers.Snapshot, error) {
	return m.snap, m.err
}

// mockSource serves casinos per state and offers per casino name.
type mockSource struct {
	casinos     map[model.State][]model.Casino
	stateErrs   map[model.State]error
	offers      map[string][]model.RawRecord
	offerErrs   map[string]error
	delay       time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu         sync.Mutex
	researched []string
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) DiscoverCasinos(_ context.Context, s model.State, _ []string) ([]model.Casino, error) {
	if err := m.stateErrs[s]; err != nil {
		return nil, err
	}
	return m.casinos[s], nil
}

func (m *mockSource) ResearchOffers(_ context.Context, c model.Casino) ([]model.RawRecord, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.researched = append(m.researched, c.Name)
	m.mu.Unlock()

	if err := m.offerErrs[c.Name]; err != nil {
		return nil, err
	}
	// Copy so normalization never sees shared maps.
	var out []model.RawRecord
	for _, r := range m.offers[c.Name] {
		cp := make(model.RawRecord, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out, nil
}

// recorder collects notified events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
