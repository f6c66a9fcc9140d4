package research

import (
	"time"

	"github.com/sells-group/casino-research/internal/model"
)

// Event types emitted by a Runner.
const (
	EventStarted   = "research.started"
	EventCompleted = "research.completed"
	EventFailed    = "research.failed"
)

// Event reports progress of a research run.
type Event struct {
	Type      string        `json:"type"`
	RunID     string        `json:"run_id"`
	Timestamp time.Time     `json:"timestamp"`
	States    []model.State `json:"states,omitempty"`
	Summary   *EventSummary `json:"summary,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// EventSummary is attached to completion events.
type EventSummary struct {
	MissingCasinos  int   `json:"missing_casinos"`
	Comparisons     int   `json:"comparisons"`
	BetterOffers    int   `json:"better_offers"`
	NewOffers       int   `json:"new_offers"`
	ExecutionTimeMS int64 `json:"execution_time_ms"`
}

// Notifier receives run events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(e Event) { f(e) }

// Notifiers fans one event out to several notifiers in order.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(e Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(e)
		}
	}
}
