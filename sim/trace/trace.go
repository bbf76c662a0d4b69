// Package trace keeps the in-memory evidence log of retirement decisions.
// Events are stored as plain sim.RetirementEvent values in evaluation order.
package trace

import (
	"sync"

	"github.com/inference-sim/retirement-sim/sim"
)

// TraceLevel controls which decisions are kept.
type TraceLevel string

const (
	// TraceLevelNone disables tracing.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions keeps every RETAIN and RETIRE decision.
	TraceLevelDecisions TraceLevel = "decisions"
	// TraceLevelRetirements keeps RETIRE decisions only.
	TraceLevelRetirements TraceLevel = "retirements"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelDecisions:   true,
	TraceLevelRetirements: true,
	"":                    true, // empty defaults to decisions
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// DecisionTrace is a sim.EventSink that appends events to an in-memory log.
// Safe for concurrent use.
type DecisionTrace struct {
	level TraceLevel

	mu     sync.Mutex
	events []sim.RetirementEvent
}

// NewDecisionTrace creates a DecisionTrace ready for recording.
// Panics on an unrecognized level.
func NewDecisionTrace(level TraceLevel) *DecisionTrace {
	if !IsValidTraceLevel(string(level)) {
		panic("trace: unknown trace level " + string(level))
	}
	if level == "" {
		level = TraceLevelDecisions
	}
	return &DecisionTrace{
		level:  level,
		events: make([]sim.RetirementEvent, 0),
	}
}

// Level returns the effective trace level.
func (t *DecisionTrace) Level() TraceLevel {
	return t.level
}

// Record appends event if the trace level keeps it.
func (t *DecisionTrace) Record(event sim.RetirementEvent) {
	switch t.level {
	case TraceLevelNone:
		return
	case TraceLevelRetirements:
		if !event.IsRetire() {
			return
		}
	}
	t.mu.Lock()
	t.events = append(t.events, event)
	t.mu.Unlock()
}

// Events returns a copy of the recorded events in recording order.
func (t *DecisionTrace) Events() []sim.RetirementEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sim.RetirementEvent(nil), t.events...)
}

// Len returns the number of recorded events.
func (t *DecisionTrace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}
