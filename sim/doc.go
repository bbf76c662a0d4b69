// Package sim provides the decision core of the service retirement simulator.
//
// # Reading Guide
//
// Start with these files to understand a decision cycle:
//   - agent.go: RetirementAgent, the per-service retain/retire state machine
//   - orchestrator.go: the cycle loop (metrics refresh, evaluation, cleanup, sink)
//   - fleet.go: building an Orchestrator from a Scenario
//
// # Components
//
// The agent composes three collaborators, each behind a small interface so it
// can be faked in tests:
//   - UtilityScorer (utility.go): weighted [0,1] score from requests, SLA and dependents
//   - UtilityPredictor (learner.go): LifecycleLearner blends a linear trend over a
//     bounded utility history with a log-scaled age decay
//   - SafetyChecker (dependency.go): DependencyGraph blocks retirement of providers
//     with too many dependents and notifies the rest
//
// # Collaborators
//
// Workload arrives through MetricsSource (implementations in sim/workload) and
// decisions leave through EventSink (sim/trace, sim/telemetry). Reports and
// exports live in sim/report.
//
// No package-level mutable state: every graph, history map and RNG is owned by
// the value it was constructed into, so independent simulations can share a process.
package sim
