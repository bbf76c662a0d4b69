// Package workload supplies per-cycle service metrics to the orchestrator.
//
// Two sim.MetricsSource implementations are provided:
//   - Synthetic: seeded, age-decaying request volume with per-service popularity
//   - CSVSource: replay of recorded per-cycle metrics from a CSV file
package workload
