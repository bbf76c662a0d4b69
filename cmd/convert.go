package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/retirement-sim/sim"
	"github.com/inference-sim/retirement-sim/sim/report"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a compressed event archive to other formats",
	Long:  "Convert an events.jsonl.zst archive written by `run --out-dir` to CSV or a retirement table. Output is written to stdout for piping.",
}

// --- retirement-sim convert csv ---

var archivePath string

var convertCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Convert an event archive to the CSV event log",
	Run: func(cmd *cobra.Command, args []string) {
		events := mustReadArchive(archivePath)
		if err := report.WriteCSV(os.Stdout, events); err != nil {
			logrus.Fatalf("CSV conversion failed: %v", err)
		}
	},
}

// --- retirement-sim convert table ---

var convertTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the retirements recorded in an event archive",
	Run: func(cmd *cobra.Command, args []string) {
		report.RenderRetirements(os.Stdout, mustReadArchive(archivePath))
	},
}

func mustReadArchive(path string) []sim.RetirementEvent {
	events, err := readArchiveFile(path)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	return events
}

func readArchiveFile(path string) ([]sim.RetirementEvent, error) {
	if path == "" {
		return nil, errors.New("--archive is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()
	events, err := report.ReadArchive(f)
	if err != nil {
		return nil, fmt.Errorf("reading archive %s: %w", path, err)
	}
	logrus.Infof("read %d events from %s", len(events), path)
	return events, nil
}

func init() {
	convertCmd.PersistentFlags().StringVar(&archivePath, "archive", "", "Path to an events.jsonl.zst archive")
	convertCmd.AddCommand(convertCSVCmd)
	convertCmd.AddCommand(convertTableCmd)
}
