package sim

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultCriticalDependents is the dependent count at which a provider becomes unretirable.
const DefaultCriticalDependents = 2

// SafetyChecker decides whether a service can be retired without stranding dependents.
type SafetyChecker interface {
	CanSafelyRetire(svc *Service) bool
}

// DependentNotifier is told when a provider with a few non-critical dependents retires.
type DependentNotifier interface {
	NotifyRetirement(providerID string, dependents []string)
}

// LogNotifier reports pending retirements to the log only.
type LogNotifier struct{}

func (LogNotifier) NotifyRetirement(providerID string, dependents []string) {
	logrus.Infof("notifying %d dependent(s) of %s retirement", len(dependents), providerID)
	for _, d := range dependents {
		logrus.Debugf("notifying dependent %s", d)
	}
}

// GraphStats summarizes the dependency graph.
type GraphStats struct {
	Providers         int // providers with at least one dependent
	Dependencies      int // total edges
	CriticalProviders int // providers at or above the critical threshold
}

func (s GraphStats) String() string {
	return fmt.Sprintf("providers=%d dependencies=%d critical=%d", s.Providers, s.Dependencies, s.CriticalProviders)
}

// DependencyGraph records which services depend on which providers.
// Reads and writes are guarded by a single RWMutex, so safety checks never
// observe a half-applied cleanup.
type DependencyGraph struct {
	criticalThreshold int
	notifier          DependentNotifier

	mu        sync.RWMutex
	providers map[string]map[string]struct{} // provider ID -> dependent IDs
}

// NewDependencyGraph creates an empty graph. A nil notifier defaults to LogNotifier.
func NewDependencyGraph(criticalThreshold int, notifier DependentNotifier) (*DependencyGraph, error) {
	if criticalThreshold < 1 {
		return nil, fmt.Errorf("%w: critical dependent threshold must be >= 1, got %d", ErrInvalidConfig, criticalThreshold)
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &DependencyGraph{
		criticalThreshold: criticalThreshold,
		notifier:          notifier,
		providers:         make(map[string]map[string]struct{}),
	}, nil
}

// CriticalThreshold returns the graph's default critical dependent count.
func (g *DependencyGraph) CriticalThreshold() int {
	return g.criticalThreshold
}

// RegisterDependency records that dependent depends on provider. Idempotent.
func (g *DependencyGraph) RegisterDependency(dependent, provider string) error {
	if dependent == provider {
		return fmt.Errorf("service %q cannot depend on itself", dependent)
	}
	g.mu.Lock()
	deps, ok := g.providers[provider]
	if !ok {
		deps = make(map[string]struct{})
		g.providers[provider] = deps
	}
	deps[dependent] = struct{}{}
	g.mu.Unlock()
	logrus.Debugf("registered dependency: %s depends on %s", dependent, provider)
	return nil
}

// UnregisterDependency removes the edge if present. Idempotent.
func (g *DependencyGraph) UnregisterDependency(dependent, provider string) {
	g.mu.Lock()
	if deps, ok := g.providers[provider]; ok {
		delete(deps, dependent)
		if len(deps) == 0 {
			delete(g.providers, provider)
		}
	}
	g.mu.Unlock()
	logrus.Debugf("unregistered dependency: %s no longer depends on %s", dependent, provider)
}

// Dependents returns the sorted IDs of services depending on serviceID.
func (g *DependencyGraph) Dependents(serviceID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.providers[serviceID])
}

// DependsOn reports whether the service appears as a dependent of any provider.
func (g *DependencyGraph) DependsOn(serviceID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, deps := range g.providers {
		if _, ok := deps[serviceID]; ok {
			return true
		}
	}
	return false
}

// CanSafelyRetire applies the graph's default critical threshold.
func (g *DependencyGraph) CanSafelyRetire(svc *Service) bool {
	return g.canSafelyRetire(svc, g.criticalThreshold)
}

// WithCriticalThreshold returns a SafetyChecker over this graph that uses
// threshold instead of the graph default.
func (g *DependencyGraph) WithCriticalThreshold(threshold int) SafetyChecker {
	return thresholdView{graph: g, threshold: threshold}
}

type thresholdView struct {
	graph     *DependencyGraph
	threshold int
}

func (v thresholdView) CanSafelyRetire(svc *Service) bool {
	return v.graph.canSafelyRetire(svc, v.threshold)
}

// canSafelyRetire writes the live dependent count back onto svc, then:
// no dependents is safe, threshold or more is unsafe, and anything in between
// is safe after notifying the dependents.
func (g *DependencyGraph) canSafelyRetire(svc *Service, threshold int) bool {
	dependents := g.Dependents(svc.ID)
	svc.SetDependentCount(len(dependents))

	switch {
	case len(dependents) == 0:
		logrus.Infof("service %s has no dependents, safe to retire", svc.ID)
		return true
	case len(dependents) >= threshold:
		logrus.Warnf("service %s has %d critical dependents, cannot retire safely", svc.ID, len(dependents))
		return false
	default:
		logrus.Infof("service %s has %d non-critical dependent(s), retiring with notification", svc.ID, len(dependents))
		g.notifier.NotifyRetirement(svc.ID, dependents)
		return true
	}
}

// ClearDependenciesForRetiredService removes serviceID as a provider and from
// every provider's dependent set.
func (g *DependencyGraph) ClearDependenciesForRetiredService(serviceID string) {
	g.mu.Lock()
	delete(g.providers, serviceID)
	for provider, deps := range g.providers {
		delete(deps, serviceID)
		if len(deps) == 0 {
			delete(g.providers, provider)
		}
	}
	g.mu.Unlock()
	logrus.Infof("cleared all dependencies for retired service %s", serviceID)
}

// Stats returns counts over the whole graph.
func (g *DependencyGraph) Stats() GraphStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var stats GraphStats
	for _, deps := range g.providers {
		if len(deps) == 0 {
			continue
		}
		stats.Providers++
		stats.Dependencies += len(deps)
		if len(deps) >= g.criticalThreshold {
			stats.CriticalProviders++
		}
	}
	return stats
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
