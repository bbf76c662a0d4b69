package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/inference-sim/retirement-sim/sim"
)

// TimestampLayout is the time format used in the CSV event log.
const TimestampLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"Time", "ServiceID", "UtilityScore", "DependencyCount", "RetirementDecision", "CPU_Freed", "Reason"}

// WriteCSV writes events as a CSV table with a header row.
func WriteCSV(w io.Writer, events []sim.RetirementEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, ev := range events {
		record := []string{
			ev.Timestamp.Format(TimestampLayout),
			ev.ServiceID,
			strconv.FormatFloat(ev.UtilityScore, 'f', 2, 64),
			strconv.Itoa(ev.DependencyCount),
			string(ev.Decision),
			strconv.FormatFloat(ev.CPUFreed, 'f', 2, 64),
			ev.Reason,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", ev.ServiceID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
