package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Decision is the outcome of one agent evaluation.
type Decision string

const (
	DecisionRetain Decision = "RETAIN"
	DecisionRetire Decision = "RETIRE"
)

// Retain reasons.
const (
	ReasonInsufficientWindow   = "insufficient low-utility window"
	ReasonCriticalDependencies = "critical dependencies prevent retirement"
)

// CPUUnitsPerService scales the idle-capacity estimate reported on retirement.
const CPUUnitsPerService = 20.0

// RetirementEvent records one agent decision. Treat as immutable once built.
type RetirementEvent struct {
	EventID          string    `json:"event_id"`
	ServiceID        string    `json:"service_id"`
	Cycle            int       `json:"cycle"`
	Timestamp        time.Time `json:"timestamp"`
	UtilityScore     float64   `json:"utility_score"`
	PredictedUtility float64   `json:"predicted_utility"`
	DependencyCount  int       `json:"dependency_count"`
	Decision         Decision  `json:"decision"`
	CPUFreed         float64   `json:"cpu_freed"`
	Reason           string    `json:"reason"`
}

// IsRetire reports whether the event retired its service.
func (e RetirementEvent) IsRetire() bool {
	return e.Decision == DecisionRetire
}

func (e RetirementEvent) String() string {
	return fmt.Sprintf("RetirementEvent{service=%s, cycle=%d, utility=%.3f, predicted=%.3f, dependents=%d, decision=%s, cpuFreed=%.2f, reason=%q}",
		e.ServiceID, e.Cycle, e.UtilityScore, e.PredictedUtility, e.DependencyCount, e.Decision, e.CPUFreed, e.Reason)
}

func newRetirementEvent(svc *Service, cycle int, at time.Time, utility, predicted float64,
	decision Decision, cpuFreed float64, reason string) *RetirementEvent {
	return &RetirementEvent{
		EventID:          uuid.NewString(),
		ServiceID:        svc.ID,
		Cycle:            cycle,
		Timestamp:        at,
		UtilityScore:     utility,
		PredictedUtility: predicted,
		DependencyCount:  svc.DependentCount(),
		Decision:         decision,
		CPUFreed:         cpuFreed,
		Reason:           reason,
	}
}

// EventSink receives decision events in evaluation order. Record must not block.
type EventSink interface {
	Record(event RetirementEvent)
}

// MultiSink fans each event out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) Record(event RetirementEvent) {
	for _, s := range m {
		s.Record(event)
	}
}

type discardSink struct{}

func (discardSink) Record(RetirementEvent) {}
