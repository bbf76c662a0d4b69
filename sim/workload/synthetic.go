package workload

import (
	"math"

	"github.com/inference-sim/retirement-sim/sim"
)

// Synthetic generates workload that decays with service age.
//
// Each cycle a service receives
//
//	requests = BaseRequests * popularity * AgeDecay^(cycle/AgeScale) * U[0.5, 1.5)
//
// where popularity is drawn once per service from (1-PopularitySpread, 1].
// Utilization tracks requests against sim.MaxRequestsPerCycle and the SLA
// contribution drifts by U[-SLADrift/2, SLADrift/2).
//
// Every service draws from its own RNG subsystem, so its stream does not depend
// on which other services are still active. Not thread-safe.
type Synthetic struct {
	config     sim.WorkloadConfig
	rng        *sim.PartitionedRNG
	popularity map[string]float64
}

// NewSynthetic creates a generator for the given parameters and seed.
func NewSynthetic(cfg sim.WorkloadConfig, seed int64) (*Synthetic, error) {
	cfg.CSVPath = ""
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Synthetic{
		config:     cfg,
		rng:        sim.NewPartitionedRNG(sim.NewSimulationKey(seed)),
		popularity: make(map[string]float64),
	}, nil
}

// Next always returns metrics.
func (s *Synthetic) Next(cycle int, svc *sim.Service) (sim.WorkloadMetrics, bool) {
	rng := s.rng.ForSubsystem(sim.SubsystemWorkload(svc.ID))

	popularity, ok := s.popularity[svc.ID]
	if !ok {
		popularity = 1 - s.config.PopularitySpread*rng.Float64()
		s.popularity[svc.ID] = popularity
	}

	decay := math.Pow(s.config.AgeDecay, float64(cycle)/s.config.AgeScale)
	requests := int(float64(s.config.BaseRequests) * popularity * decay * (0.5 + rng.Float64()))
	drift := s.config.SLADrift * (rng.Float64() - 0.5)

	return sim.WorkloadMetrics{
		RequestCount:         requests,
		UtilizationRate:      float64(requests) / sim.MaxRequestsPerCycle,
		SLAContributionDelta: drift,
	}, true
}

// Popularity returns the popularity drawn for serviceID, and false before its first cycle.
func (s *Synthetic) Popularity(serviceID string) (float64, bool) {
	p, ok := s.popularity[serviceID]
	return p, ok
}
