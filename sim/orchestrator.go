package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// WorkloadMetrics is one cycle's externally supplied workload for a service.
type WorkloadMetrics struct {
	RequestCount         int
	UtilizationRate      float64
	SLAContributionDelta float64
}

// MetricsSource supplies per-cycle workload metrics.
// Returning false means "no data for this service this cycle"; the service is left unchanged.
type MetricsSource interface {
	Next(cycle int, svc *Service) (WorkloadMetrics, bool)
}

// OrchestratorConfig wires the shared components an Orchestrator drives.
// Scorer, Learner and Graph are required; a nil Source leaves metrics
// untouched and a nil Sink discards events.
type OrchestratorConfig struct {
	Scorer  UtilityScorer
	Learner UtilityLearner
	Graph   *DependencyGraph
	Source  MetricsSource
	Sink    EventSink

	// Parallelism > 1 evaluates agents concurrently within a cycle. Post-processing
	// (learner, graph cleanup, sink) still happens in insertion order after all
	// agents of the cycle have decided.
	Parallelism int
}

// Orchestrator drives a fleet of RetirementAgents through discrete cycles.
// Agents are evaluated in insertion order. Not safe for concurrent use.
type Orchestrator struct {
	scorer      UtilityScorer
	learner     UtilityLearner
	graph       *DependencyGraph
	source      MetricsSource
	sink        EventSink
	parallelism int

	services []*Service
	agents   []*RetirementAgent
	byID     map[string]*RetirementAgent
	cycle    int
	tally    tally
}

type tally struct {
	retireCount      int
	retainCount      int
	cpuFreed         float64
	retiredUtilities []float64
}

// NewOrchestrator validates cfg and returns an empty orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Scorer == nil || cfg.Learner == nil || cfg.Graph == nil {
		return nil, fmt.Errorf("%w: orchestrator requires a scorer, learner and dependency graph", ErrInvalidConfig)
	}
	if cfg.Parallelism < 0 {
		return nil, fmt.Errorf("%w: parallelism must be non-negative, got %d", ErrInvalidConfig, cfg.Parallelism)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = discardSink{}
	}
	return &Orchestrator{
		scorer:      cfg.Scorer,
		learner:     cfg.Learner,
		graph:       cfg.Graph,
		source:      cfg.Source,
		sink:        sink,
		parallelism: max(1, cfg.Parallelism),
		byID:        make(map[string]*RetirementAgent),
	}, nil
}

// AddService registers svc and builds its agent from cfg.
// Panics if a service with the same ID was already added.
func (o *Orchestrator) AddService(svc *Service, cfg AgentConfig) (*RetirementAgent, error) {
	if _, dup := o.byID[svc.ID]; dup {
		panic(fmt.Sprintf("Orchestrator: duplicate service id %q", svc.ID))
	}
	safety := o.graph.WithCriticalThreshold(cfg.CriticalDependents)
	agent, err := NewRetirementAgent(svc, o.scorer, o.learner, safety, cfg)
	if err != nil {
		return nil, err
	}
	o.services = append(o.services, svc)
	o.agents = append(o.agents, agent)
	o.byID[svc.ID] = agent
	logrus.Debugf("added agent for %s (threshold=%.3f, window=%d)", svc.ID, cfg.UtilityThreshold, cfg.RetentionWindow)
	return agent, nil
}

// RegisterDependency records that dependent depends on provider. Both must be known services.
func (o *Orchestrator) RegisterDependency(dependent, provider string) error {
	for _, id := range []string{dependent, provider} {
		if _, ok := o.byID[id]; !ok {
			return fmt.Errorf("unknown service %q", id)
		}
	}
	return o.graph.RegisterDependency(dependent, provider)
}

// Agent returns the agent for serviceID, or nil.
func (o *Orchestrator) Agent(serviceID string) *RetirementAgent {
	return o.byID[serviceID]
}

// Agents returns the agents in insertion order.
func (o *Orchestrator) Agents() []*RetirementAgent {
	return append([]*RetirementAgent(nil), o.agents...)
}

// Graph returns the dependency graph the orchestrator mutates.
func (o *Orchestrator) Graph() *DependencyGraph {
	return o.graph
}

// Cycle returns the number of completed cycles.
func (o *Orchestrator) Cycle() int {
	return o.cycle
}

// Run executes cycles one after another. It stops early only if ctx is
// cancelled between cycles.
func (o *Orchestrator) Run(ctx context.Context, cycles int) error {
	logrus.Infof("starting simulation: %d services, %d cycles", len(o.services), cycles)
	for i := 0; i < cycles; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("simulation stopped after %d cycles: %w", o.cycle, err)
		}
		o.RunCycle(ctx)
		if o.cycle%10 == 0 {
			s := o.Summary()
			logrus.Infof("cycle %d/%d: active=%d retired=%d", o.cycle, cycles, s.ActiveServices, s.RetiredServices)
		}
	}
	logrus.Infof("simulation complete after %d cycles", o.cycle)
	return nil
}

// RunCycle executes one full cycle and returns its events in evaluation order.
func (o *Orchestrator) RunCycle(ctx context.Context) []RetirementEvent {
	o.cycle++
	cycle := o.cycle

	o.refreshMetrics(cycle)

	if o.parallelism > 1 {
		return o.runParallel(ctx, cycle)
	}

	var events []RetirementEvent
	for _, agent := range o.agents {
		if agent.Service().IsRetired() {
			continue
		}
		if ev := agent.EvaluateRetirement(ctx, cycle); ev != nil {
			o.apply(*ev)
			events = append(events, *ev)
		}
	}
	return events
}

// runParallel evaluates all active agents concurrently, then applies their
// events in insertion order once every agent has decided.
func (o *Orchestrator) runParallel(ctx context.Context, cycle int) []RetirementEvent {
	results := make([]*RetirementEvent, len(o.agents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, agent := range o.agents {
		if agent.Service().IsRetired() {
			continue
		}
		g.Go(func() error {
			results[i] = agent.EvaluateRetirement(gctx, cycle)
			return nil
		})
	}
	_ = g.Wait() // evaluations never fail

	var events []RetirementEvent
	for _, ev := range results {
		if ev == nil {
			continue
		}
		o.apply(*ev)
		events = append(events, *ev)
	}
	return events
}

// refreshMetrics pulls this cycle's workload for every active service.
func (o *Orchestrator) refreshMetrics(cycle int) {
	if o.source == nil {
		return
	}
	for _, svc := range o.services {
		if svc.IsRetired() {
			continue
		}
		m, ok := o.source.Next(cycle, svc)
		if !ok {
			logrus.Debugf("no metrics for %s in cycle %d, keeping previous values", svc.ID, cycle)
			continue
		}
		svc.ApplyMetrics(m)
	}
}

// apply feeds an event to the learner, cleans the graph on retirement and
// forwards the event to the sink.
func (o *Orchestrator) apply(ev RetirementEvent) {
	o.learner.RecordObservation(ev.ServiceID, ev.UtilityScore)
	switch ev.Decision {
	case DecisionRetire:
		if stats, ok := o.learner.Stats(ev.ServiceID); ok {
			logrus.Debugf("retired %s (%s) utility history: n=%d mean=%.3f min=%.3f max=%.3f",
				ev.ServiceID, UtilityLevel(ev.UtilityScore), stats.Count, stats.Mean, stats.Min, stats.Max)
		}
		o.graph.ClearDependenciesForRetiredService(ev.ServiceID)
		o.tally.retireCount++
		o.tally.cpuFreed += ev.CPUFreed
		o.tally.retiredUtilities = append(o.tally.retiredUtilities, ev.UtilityScore)
	case DecisionRetain:
		o.tally.retainCount++
	}
	o.sink.Record(ev)
}

// Summary aggregates the fleet state and decision counts so far.
func (o *Orchestrator) Summary() SimulationMetrics {
	m := SimulationMetrics{
		Cycles:         o.cycle,
		TotalServices:  len(o.services),
		CPUFreed:       o.tally.cpuFreed,
		RetireCount:    o.tally.retireCount,
		RetainCount:    o.tally.retainCount,
		RetiredUtility: NewDistribution(o.tally.retiredUtilities),
	}
	for _, svc := range o.services {
		if svc.IsRetired() {
			m.RetiredServices++
		} else {
			m.ActiveServices++
		}
	}
	return m
}
