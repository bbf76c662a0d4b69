package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/retirement-sim/sim"
	"github.com/inference-sim/retirement-sim/sim/report"
	"github.com/inference-sim/retirement-sim/sim/telemetry"
	"github.com/inference-sim/retirement-sim/sim/trace"
	"github.com/inference-sim/retirement-sim/sim/workload"
)

// Export file names written under runOptions.OutDir.
const (
	eventsCSVFile     = "events.csv"
	eventsArchiveFile = "events.jsonl.zst"
	metricsFile       = "metrics.prom"
)

// runOptions controls outputs of a simulation run.
type runOptions struct {
	TraceLevel      string
	OutDir          string
	ShowRetirements bool
}

// runSimulation builds the fleet for s, runs it and writes the report to stdout.
// A cancelled ctx stops the run between cycles; the partial results are still reported.
func runSimulation(ctx context.Context, s *sim.Scenario, opts runOptions, stdout io.Writer) error {
	if !trace.IsValidTraceLevel(opts.TraceLevel) {
		return fmt.Errorf("%w: unknown trace level %q", sim.ErrInvalidConfig, opts.TraceLevel)
	}

	source, err := newMetricsSource(s)
	if err != nil {
		return err
	}

	tr := trace.NewDecisionTrace(trace.TraceLevel(opts.TraceLevel))
	sinks := sim.MultiSink{tr}
	// Exports and the retirements table always see every decision, whatever the trace level.
	evidence := tr
	if tr.Level() != trace.TraceLevelDecisions {
		evidence = trace.NewDecisionTrace(trace.TraceLevelDecisions)
		sinks = append(sinks, evidence)
	}
	reg := prometheus.NewRegistry()
	promSink, err := telemetry.NewPrometheusSink(reg)
	if err != nil {
		return err
	}

	orch, err := sim.BuildFleet(s, source, append(sinks, promSink))
	if err != nil {
		return err
	}

	startTime := time.Now()
	runErr := orch.Run(ctx, s.Cycles)
	if runErr != nil {
		logrus.Warnf("%v", runErr)
	}
	logrus.Infof("ran %d cycles in %s", orch.Cycle(), time.Since(startTime))

	summary := orch.Summary()
	promSink.ObserveSummary(summary)

	report.RenderSummary(stdout, summary, trace.Summarize(tr))
	if opts.ShowRetirements {
		report.RenderRetirements(stdout, evidence.Events())
	}

	if opts.OutDir != "" {
		if err := writeExports(opts.OutDir, evidence.Events(), reg); err != nil {
			return err
		}
	}
	return runErr
}

// newMetricsSource returns the CSV replay source when the scenario names a file,
// the synthetic generator otherwise. A CSV replay without an explicit fleet
// simulates exactly the services that appear in the file.
func newMetricsSource(s *sim.Scenario) (sim.MetricsSource, error) {
	if s.Workload.CSVPath == "" {
		return workload.NewSynthetic(s.Workload, s.Seed)
	}
	src, err := workload.LoadCSV(s.Workload.CSVPath)
	if err != nil {
		return nil, err
	}
	if len(s.Fleet) == 0 {
		for _, id := range src.ServiceIDs() {
			s.Fleet = append(s.Fleet, sim.ServiceSpec{ID: id, Name: id})
		}
	}
	if s.Cycles > src.Cycles() {
		logrus.Warnf("scenario runs %d cycles but %s only covers %d; later cycles keep the last metrics",
			s.Cycles, s.Workload.CSVPath, src.Cycles())
	}
	return src, nil
}

// writeExports writes the CSV event log, the compressed archive and the metrics dump.
func writeExports(dir string, events []sim.RetirementEvent, g prometheus.Gatherer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, eventsCSVFile), func(w io.Writer) error {
		return report.WriteCSV(w, events)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, eventsArchiveFile), func(w io.Writer) error {
		return report.WriteArchive(w, events)
	}); err != nil {
		return err
	}
	if err := telemetry.WriteTextfile(filepath.Join(dir, metricsFile), g); err != nil {
		return err
	}
	logrus.Infof("exported %d events to %s", len(events), dir)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
