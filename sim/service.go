package sim

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Default starting values for a freshly created service.
const (
	defaultUtilizationRate = 0.5
	defaultSLAContribution = 0.5
)

// Service is one member of the simulated fleet.
//
// Identity fields are immutable. The workload fields are written by the
// Orchestrator's metrics refresh and the dependent count by the DependencyGraph;
// the retired flag is written once by the owning RetirementAgent.
// All mutable fields are guarded so agents may be evaluated in parallel.
//
// Setters clamp instead of rejecting: rates and SLA contribution to [0,1],
// counts to >= 0.
type Service struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu              sync.RWMutex
	utilizationRate float64
	requestCount    int
	dependentCount  int
	slaContribution float64
	retired         bool
	retiredAt       time.Time
}

// NewService creates an active service with mid-range utilization and SLA contribution.
func NewService(id, name string, createdAt time.Time) *Service {
	return &Service{
		ID:              id,
		Name:            name,
		CreatedAt:       createdAt,
		utilizationRate: defaultUtilizationRate,
		slaContribution: defaultSLAContribution,
	}
}

// UtilizationRate returns the last reported utilization in [0,1].
func (s *Service) UtilizationRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.utilizationRate
}

// SetUtilizationRate stores v clamped to [0,1].
func (s *Service) SetUtilizationRate(v float64) {
	s.mu.Lock()
	s.utilizationRate = clampUnit(v)
	s.mu.Unlock()
}

// RequestCount returns the last reported request count.
func (s *Service) RequestCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requestCount
}

// SetRequestCount stores n, with negative counts stored as 0.
func (s *Service) SetRequestCount(n int) {
	s.mu.Lock()
	s.requestCount = max(0, n)
	s.mu.Unlock()
}

// DependentCount is informational; the DependencyGraph overwrites it on every safety check.
func (s *Service) DependentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dependentCount
}

// SetDependentCount stores n, with negative counts stored as 0.
func (s *Service) SetDependentCount(n int) {
	s.mu.Lock()
	s.dependentCount = max(0, n)
	s.mu.Unlock()
}

// SLAContribution returns the service's share of SLA attainment in [0,1].
func (s *Service) SLAContribution() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slaContribution
}

// SetSLAContribution stores v clamped to [0,1].
func (s *Service) SetSLAContribution(v float64) {
	s.mu.Lock()
	s.slaContribution = clampUnit(v)
	s.mu.Unlock()
}

// IsRetired reports whether the service has been retired.
func (s *Service) IsRetired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retired
}

// RetiredAt returns the retirement time, and false if the service is still active.
func (s *Service) RetiredAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retiredAt, s.retired
}

// Retire marks the service retired at the given time.
// Returns false without changing anything if it was already retired.
func (s *Service) Retire(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return false
	}
	s.retired = true
	s.retiredAt = at
	return true
}

// ApplyMetrics overwrites the per-cycle workload fields and drifts the SLA
// contribution by the supplied delta. A non-finite delta leaves the SLA
// contribution as it was. Retired services are left untouched.
func (s *Service) ApplyMetrics(m WorkloadMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return
	}
	s.requestCount = max(0, m.RequestCount)
	s.utilizationRate = clampUnit(m.UtilizationRate)
	if d := m.SLAContributionDelta; !math.IsNaN(d) && !math.IsInf(d, 0) {
		s.slaContribution = clampUnit(s.slaContribution + m.SLAContributionDelta)
	}
}

func (s *Service) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("Service{id=%s, name=%s, utilization=%.3f, requests=%d, dependents=%d, sla=%.3f, retired=%t}",
		s.ID, s.Name, s.utilizationRate, s.requestCount, s.dependentCount, s.slaContribution, s.retired)
}

// clampUnit clamps v into [0,1]. NaN maps to 0.
func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(1, v))
}
