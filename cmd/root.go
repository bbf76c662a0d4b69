package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/retirement-sim/sim"
)

var (
	// CLI flags for the simulation run
	configPath       string        // Scenario YAML file
	services         int           // Number of generated services
	cycles           int           // Number of decision cycles
	seed             int64         // Seed for workload, thresholds and topology
	logLevel         string        // Log verbosity level
	parallelism      int           // Concurrent agent evaluations per cycle
	historyWindow    int           // Utility history length kept per service
	workloadCSV      string        // Replay metrics from a CSV file
	utilityThreshold float64       // Fleet-wide utility threshold (sampled per agent when unset)
	retentionWindow  int           // Fleet-wide retention window (sampled per agent when unset)
	shutdownDelay    time.Duration // Simulated shutdown delay per retirement

	// CLI flags for outputs
	traceLevel      string // Decision trace verbosity
	outDir          string // Directory for CSV, archive and metrics exports
	showRetirements bool   // Print a per-retirement table
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "retirement-sim",
	Short: "Agent-based simulator for autonomous service retirement",
}

// runCmd executes the simulation using a scenario file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the service retirement simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		scenario := sim.DefaultScenario()
		if configPath != "" {
			loaded, err := sim.LoadScenario(configPath)
			if err != nil {
				logrus.Fatalf("unable to read scenario: %v", err)
			}
			scenario = *loaded
		}
		applyFlagOverrides(cmd, &scenario)
		if err := scenario.Validate(); err != nil {
			logrus.Fatalf("invalid scenario: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := runOptions{TraceLevel: traceLevel, OutDir: outDir, ShowRetirements: showRetirements}
		if err := runSimulation(ctx, &scenario, opts, os.Stdout); err != nil {
			logrus.Fatalf("simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// applyFlagOverrides copies explicitly set flags onto the scenario.
// Flags left at their defaults never override values from the scenario file.
func applyFlagOverrides(cmd *cobra.Command, s *sim.Scenario) {
	flags := cmd.Flags()
	if flags.Changed("services") {
		s.Services = services
		s.Fleet = nil
	}
	if flags.Changed("cycles") {
		s.Cycles = cycles
	}
	if flags.Changed("seed") {
		s.Seed = seed
	}
	if flags.Changed("parallelism") {
		s.Parallelism = parallelism
	}
	if flags.Changed("history-window") {
		s.HistoryWindow = historyWindow
	}
	if flags.Changed("workload-csv") {
		s.Workload.CSVPath = workloadCSV
	}
	if flags.Changed("utility-threshold") {
		v := utilityThreshold
		s.Thresholds.UtilityThreshold = &v
	}
	if flags.Changed("retention-window") {
		v := retentionWindow
		s.Thresholds.RetentionWindow = &v
	}
	if flags.Changed("shutdown-delay") {
		s.Thresholds.ShutdownDelay = shutdownDelay
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	defaults := sim.DefaultScenario()

	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a scenario YAML file")
	runCmd.Flags().IntVar(&services, "services", defaults.Services, "Number of generated services (replaces the scenario fleet)")
	runCmd.Flags().IntVar(&cycles, "cycles", defaults.Cycles, "Number of decision cycles")
	runCmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Seed for workload, thresholds and dependency topology")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&parallelism, "parallelism", defaults.Parallelism, "Concurrent agent evaluations per cycle")
	runCmd.Flags().IntVar(&historyWindow, "history-window", defaults.HistoryWindow, "Utility observations kept per service")
	runCmd.Flags().StringVar(&workloadCSV, "workload-csv", "", "Replay per-cycle metrics from a CSV file instead of generating them")
	runCmd.Flags().Float64Var(&utilityThreshold, "utility-threshold", 0.35, "Fleet-wide utility threshold (sampled per agent when not set)")
	runCmd.Flags().IntVar(&retentionWindow, "retention-window", 7, "Fleet-wide retention window in cycles (sampled per agent when not set)")
	runCmd.Flags().DurationVar(&shutdownDelay, "shutdown-delay", 0, "Simulated shutdown delay per retirement")

	runCmd.Flags().StringVar(&traceLevel, "trace-level", "decisions", "Decision trace level for the printed summary (none, decisions, retirements); exports always keep every decision")
	runCmd.Flags().StringVar(&outDir, "out-dir", "", "Write events.csv, events.jsonl.zst and metrics.prom to this directory")
	runCmd.Flags().BoolVar(&showRetirements, "show-retirements", false, "Print a table of every retirement")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(convertCmd)
}
