package trace

import (
	"sort"
)

// topDependentsLimit bounds TraceSummary.TopDependents.
const topDependentsLimit = 5

// DependentCount pairs a service with the dependent count it reported.
type DependentCount struct {
	ServiceID  string
	Dependents int
}

// TraceSummary aggregates statistics from a DecisionTrace.
type TraceSummary struct {
	TotalEvents         int
	RetireCount         int
	RetainCount         int
	TotalCPUFreed       float64
	MeanRetiredUtility  float64
	DependenciesManaged int            // sum of dependent counts seen on RETIRE events
	RetirementRate      float64        // RetireCount / TotalEvents
	ReasonCounts        map[string]int // reason → number of events
	TopDependents       []DependentCount
}

// Summarize computes aggregate statistics from a DecisionTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *DecisionTrace) *TraceSummary {
	summary := &TraceSummary{
		ReasonCounts: make(map[string]int),
	}
	if t == nil {
		return summary
	}
	events := t.Events()
	summary.TotalEvents = len(events)
	if len(events) == 0 {
		return summary
	}

	retiredUtility := 0.0
	peak := make(map[string]int)
	for _, ev := range events {
		summary.ReasonCounts[ev.Reason]++
		if ev.DependencyCount > peak[ev.ServiceID] {
			peak[ev.ServiceID] = ev.DependencyCount
		}
		if ev.IsRetire() {
			summary.RetireCount++
			summary.TotalCPUFreed += ev.CPUFreed
			summary.DependenciesManaged += ev.DependencyCount
			retiredUtility += ev.UtilityScore
		} else {
			summary.RetainCount++
		}
	}
	if summary.RetireCount > 0 {
		summary.MeanRetiredUtility = retiredUtility / float64(summary.RetireCount)
	}
	summary.RetirementRate = float64(summary.RetireCount) / float64(summary.TotalEvents)
	summary.TopDependents = topDependents(peak, topDependentsLimit)
	return summary
}

// topDependents returns up to k services with the most dependents, ties broken by id.
// Services that never reported a dependent are omitted.
func topDependents(peak map[string]int, k int) []DependentCount {
	out := make([]DependentCount, 0, len(peak))
	for id, n := range peak {
		if n > 0 {
			out = append(out, DependentCount{ServiceID: id, Dependents: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dependents != out[j].Dependents {
			return out[i].Dependents > out[j].Dependents
		}
		return out[i].ServiceID < out[j].ServiceID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
