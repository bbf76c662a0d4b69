package sim

import (
	"sync"
	"testing"
	"time"
)

// fixedPredictor returns currentUtility unchanged, like a learner with no history.
type fixedPredictor struct{}

func (fixedPredictor) PredictFutureUtility(_ *Service, current float64) float64 { return current }

// constantPredictor always predicts the same value.
type constantPredictor float64

func (c constantPredictor) PredictFutureUtility(*Service, float64) float64 { return float64(c) }

// countingSafety records how often it was asked and answers with safe.
type countingSafety struct {
	safe  bool
	calls int
}

func (c *countingSafety) CanSafelyRetire(*Service) bool {
	c.calls++
	return c.safe
}

// recordingNotifier captures dependent notifications.
type recordingNotifier struct {
	mu    sync.Mutex
	calls map[string][]string
}

func (r *recordingNotifier) NotifyRetirement(provider string, dependents []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string][]string)
	}
	r.calls[provider] = append([]string(nil), dependents...)
}

// recordingSink collects events in arrival order.
type recordingSink struct {
	events []RetirementEvent
}

func (r *recordingSink) Record(ev RetirementEvent) {
	r.events = append(r.events, ev)
}

// staticSource replays the same metrics for every service every cycle.
type staticSource struct {
	metrics WorkloadMetrics
	skip    map[string]bool
}

func (s staticSource) Next(_ int, svc *Service) (WorkloadMetrics, bool) {
	if s.skip[svc.ID] {
		return WorkloadMetrics{}, false
	}
	return s.metrics, true
}

// newLowUtilityService builds a service with requests=10, utilization=0.05, sla=0.1.
func newLowUtilityService(id string) *Service {
	svc := NewService(id, "svc-"+id, time.Unix(0, 0))
	svc.SetRequestCount(10)
	svc.SetUtilizationRate(0.05)
	svc.SetSLAContribution(0.1)
	return svc
}

func mustScorer(t *testing.T) *WeightedUtilityScorer {
	t.Helper()
	s, err := NewWeightedUtilityScorer(DefaultUtilityWeights())
	if err != nil {
		t.Fatalf("NewWeightedUtilityScorer: %v", err)
	}
	return s
}

func mustGraph(t *testing.T, notifier DependentNotifier) *DependencyGraph {
	t.Helper()
	g, err := NewDependencyGraph(DefaultCriticalDependents, notifier)
	if err != nil {
		t.Fatalf("NewDependencyGraph: %v", err)
	}
	return g
}

func mustLearner(t *testing.T, window int) *LifecycleLearner {
	t.Helper()
	l, err := NewLifecycleLearner(window)
	if err != nil {
		t.Fatalf("NewLifecycleLearner: %v", err)
	}
	return l
}

var testTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
