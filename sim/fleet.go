package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// BuildFleet validates the scenario and assembles an Orchestrator with one
// agent per service and the scenario's dependency topology.
//
// Without an explicit fleet, each service S(i+1), i >= 1, depends on one
// uniformly chosen earlier service with probability DependencyProbability.
// Thresholds not fixed by the scenario are sampled per agent. All draws come
// from a PartitionedRNG keyed by the scenario seed.
func BuildFleet(s *Scenario, source MetricsSource, sink EventSink) (*Orchestrator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	scorer, err := NewWeightedUtilityScorer(s.Weights)
	if err != nil {
		return nil, err
	}
	learner, err := NewLifecycleLearner(s.HistoryWindow)
	if err != nil {
		return nil, err
	}
	graph, err := NewDependencyGraph(s.Thresholds.CriticalDependents, nil)
	if err != nil {
		return nil, err
	}
	orch, err := NewOrchestrator(OrchestratorConfig{
		Scorer:      scorer,
		Learner:     learner,
		Graph:       graph,
		Source:      source,
		Sink:        sink,
		Parallelism: s.Parallelism,
	})
	if err != nil {
		return nil, err
	}

	rng := NewPartitionedRNG(NewSimulationKey(s.Seed))
	agentRNG := rng.ForSubsystem(SubsystemAgents)
	createdAt := time.Now()

	specs := s.fleetSpecs()
	for _, spec := range specs {
		threshold := MinSampledThreshold + agentRNG.Float64()*(MaxSampledThreshold-MinSampledThreshold)
		window := MinSampledWindow + agentRNG.Intn(MaxSampledWindow-MinSampledWindow)
		cfg := s.agentConfig(spec, threshold, window)

		name := spec.Name
		if name == "" {
			name = spec.ID
		}
		if _, err := orch.AddService(NewService(spec.ID, name, createdAt), cfg); err != nil {
			return nil, err
		}
	}

	if len(s.Fleet) > 0 {
		for _, spec := range s.Fleet {
			for _, provider := range spec.DependsOn {
				if err := orch.RegisterDependency(spec.ID, provider); err != nil {
					return nil, fmt.Errorf("registering %s -> %s: %w", spec.ID, provider, err)
				}
			}
		}
	} else {
		depRNG := rng.ForSubsystem(SubsystemDependencies)
		for i := 1; i < len(specs); i++ {
			if depRNG.Float64() < s.DependencyProbability {
				provider := specs[depRNG.Intn(i)].ID
				if err := orch.RegisterDependency(specs[i].ID, provider); err != nil {
					return nil, err
				}
			}
		}
	}

	logrus.Infof("fleet initialized with %d services: %s", len(specs), graph.Stats())
	return orch, nil
}
