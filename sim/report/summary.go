package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/inference-sim/retirement-sim/sim"
	"github.com/inference-sim/retirement-sim/sim/trace"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummary writes the end-of-run summary table. ts may be nil when tracing was disabled.
func RenderSummary(w io.Writer, m sim.SimulationMetrics, ts *trace.TraceSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Service Retirement Summary")
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Cycles", m.Cycles},
		{"Total services", m.TotalServices},
		{"Active services", m.ActiveServices},
		{"Retired services", m.RetiredServices},
		{"Retire decisions", m.RetireCount},
		{"Retain decisions", m.RetainCount},
		{"CPU freed (units)", fmt.Sprintf("%.2f", m.CPUFreed)},
		{"Reclamation efficiency", fmt.Sprintf("%.1f%%", m.ReclamationEfficiency())},
		{"Sprawl reduction", fmt.Sprintf("%.1f%%", m.SprawlReduction())},
	})
	if m.RetiredUtility.Count > 0 {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Retired utility mean", fmt.Sprintf("%.3f", m.RetiredUtility.Mean)},
			{"Retired utility p50", fmt.Sprintf("%.3f", m.RetiredUtility.P50)},
			{"Retired utility p95", fmt.Sprintf("%.3f", m.RetiredUtility.P95)},
			{"Retired utility p99", fmt.Sprintf("%.3f", m.RetiredUtility.P99)},
			{"Retired utility level", sim.UtilityLevel(m.RetiredUtility.Mean)},
		})
	}
	if ts != nil && ts.TotalEvents > 0 {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Traced events", ts.TotalEvents},
			{"Retirement rate", fmt.Sprintf("%.1f%%", ts.RetirementRate*100)},
			{"Dependencies managed", ts.DependenciesManaged},
		})
	}
	t.Render()

	if ts == nil {
		return
	}
	if len(ts.ReasonCounts) > 0 {
		renderReasons(w, ts.ReasonCounts)
	}
	if len(ts.TopDependents) > 0 {
		renderTopDependents(w, ts.TopDependents)
	}
}

func renderReasons(w io.Writer, counts map[string]int) {
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if counts[reasons[i]] != counts[reasons[j]] {
			return counts[reasons[i]] > counts[reasons[j]]
		}
		return reasons[i] < reasons[j]
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Decision Reasons")
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Reason", "Events"})
	for _, r := range reasons {
		t.AppendRow(table.Row{r, counts[r]})
	}
	t.Render()
}

func renderTopDependents(w io.Writer, top []trace.DependentCount) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Most Depended-On Services")
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Service", "Dependents"})
	for _, d := range top {
		t.AppendRow(table.Row{d.ServiceID, d.Dependents})
	}
	t.Render()
}

// RenderRetirements writes one row per RETIRE event in events, in order.
// Nothing is written when there are none.
func RenderRetirements(w io.Writer, events []sim.RetirementEvent) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Retirements")
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Cycle", "Service", "Utility", "Level", "Predicted", "Dependents", "CPU Freed"})
	n := 0
	for _, ev := range events {
		if !ev.IsRetire() {
			continue
		}
		t.AppendRow(table.Row{
			ev.Cycle,
			ev.ServiceID,
			text.FgRed.Sprintf("%.3f", ev.UtilityScore),
			sim.UtilityLevel(ev.UtilityScore),
			fmt.Sprintf("%.3f", ev.PredictedUtility),
			ev.DependencyCount,
			fmt.Sprintf("%.2f", ev.CPUFreed),
		})
		n++
	}
	if n == 0 {
		return
	}
	t.Render()
}
