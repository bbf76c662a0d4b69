package sim

import (
	"fmt"
	"math"
	"sort"
)

// SimulationMetrics aggregates the outcome of a simulation run.
type SimulationMetrics struct {
	Cycles          int
	TotalServices   int
	ActiveServices  int
	RetiredServices int
	CPUFreed        float64
	RetireCount     int
	RetainCount     int
	RetiredUtility  Distribution // utility scores at retirement time
}

// ReclamationEfficiency is CPU freed as a percentage of the fleet's nominal capacity.
func (m SimulationMetrics) ReclamationEfficiency() float64 {
	if m.TotalServices == 0 {
		return 0
	}
	return m.CPUFreed / (float64(m.TotalServices) * CPUUnitsPerService) * 100
}

// SprawlReduction is the percentage of the fleet that was retired.
func (m SimulationMetrics) SprawlReduction() float64 {
	if m.TotalServices == 0 {
		return 0
	}
	return float64(m.RetiredServices) * 100 / float64(m.TotalServices)
}

func (m SimulationMetrics) String() string {
	return fmt.Sprintf("Metrics{total:%d, active:%d, retired:%d, cpuFreed:%.2f, retirements:%d, retentions:%d}",
		m.TotalServices, m.ActiveServices, m.RetiredServices, m.CPUFreed, m.RetireCount, m.RetainCount)
}

// Distribution summarizes a set of utility scores.
type Distribution struct {
	Mean  float64
	P50   float64
	P95   float64
	P99   float64
	Min   float64
	Max   float64
	Count int
}

// NewDistribution summarizes values. The input slice is not modified.
// An empty input yields the zero Distribution.
func NewDistribution(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return Distribution{
		Mean:  sum / float64(n),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
		P99:   percentile(sorted, 0.99),
		Min:   sorted[0],
		Max:   sorted[n-1],
		Count: n,
	}
}

func (d Distribution) String() string {
	if d.Count == 0 {
		return "Distribution{empty}"
	}
	return fmt.Sprintf("Distribution{n=%d, mean=%.3f, p50=%.3f, p95=%.3f, p99=%.3f, min=%.3f, max=%.3f}",
		d.Count, d.Mean, d.P50, d.P95, d.P99, d.Min, d.Max)
}

// percentile interpolates linearly between the closest ranks of sorted for q in [0,1].
func percentile(sorted []float64, q float64) float64 {
	last := len(sorted) - 1
	if last <= 0 {
		return sorted[0]
	}
	rank := q * float64(last)
	lo := int(math.Floor(rank))
	if lo >= last {
		return sorted[last]
	}
	return sorted[lo] + (rank-float64(lo))*(sorted[lo+1]-sorted[lo])
}
