package workload

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/inference-sim/retirement-sim/sim"
	"github.com/sirupsen/logrus"
)

// CSV column names. Column order in the file is free; all are required.
const (
	ColumnCycle        = "cycle"
	ColumnServiceID    = "service_id"
	ColumnRequestCount = "request_count"
	ColumnUtilization  = "utilization"
	ColumnSLADelta     = "sla_delta"
)

var requiredColumns = []string{ColumnCycle, ColumnServiceID, ColumnRequestCount, ColumnUtilization, ColumnSLADelta}

// CSVSource replays recorded per-cycle metrics.
// A (cycle, service) pair with no row yields no metrics, leaving the service unchanged.
type CSVSource struct {
	rows     map[int]map[string]sim.WorkloadMetrics
	services map[string]bool
	maxCycle int
	skipped  int
}

// LoadCSV reads a metrics CSV file.
func LoadCSV(path string) (*CSVSource, error) {
	if path == "" {
		return nil, fmt.Errorf("metrics CSV path must not be empty")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening metrics CSV %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only file

	src, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("metrics CSV %s: %w", path, err)
	}
	logrus.Infof("loaded %d services over %d cycles from %s (%d rows skipped)",
		len(src.services), src.maxCycle, path, src.skipped)
	return src, nil
}

// ParseCSV reads metrics rows from r. The first row must be a header naming
// every required column. Malformed data rows are skipped and counted; a later
// row for the same (cycle, service) replaces an earlier one.
func ParseCSV(r io.Reader) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	src := &CSVSource{
		rows:     make(map[int]map[string]sim.WorkloadMetrics),
		services: make(map[string]bool),
	}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cycle, id, m, err := parseRow(record, index)
		if err != nil {
			src.skipped++
			logrus.Debugf("skipping metrics CSV line %d: %v", line, err)
			continue
		}
		if src.rows[cycle] == nil {
			src.rows[cycle] = make(map[string]sim.WorkloadMetrics)
		}
		src.rows[cycle][id] = m
		src.services[id] = true
		src.maxCycle = max(src.maxCycle, cycle)
	}
	if len(src.services) == 0 {
		return nil, fmt.Errorf("no valid data rows")
	}
	return src, nil
}

func parseRow(record []string, index map[string]int) (int, string, sim.WorkloadMetrics, error) {
	field := func(col string) (string, error) {
		i := index[col]
		if i >= len(record) {
			return "", fmt.Errorf("missing %s", col)
		}
		return strings.TrimSpace(record[i]), nil
	}
	var m sim.WorkloadMetrics

	raw, err := field(ColumnCycle)
	if err != nil {
		return 0, "", m, err
	}
	cycle, err := strconv.Atoi(raw)
	if err != nil || cycle < 1 {
		return 0, "", m, fmt.Errorf("invalid cycle %q", raw)
	}

	id, err := field(ColumnServiceID)
	if err != nil || id == "" {
		return 0, "", m, fmt.Errorf("missing service_id")
	}

	if raw, err = field(ColumnRequestCount); err != nil {
		return 0, "", m, err
	}
	if m.RequestCount, err = strconv.Atoi(raw); err != nil || m.RequestCount < 0 {
		return 0, "", m, fmt.Errorf("invalid request_count %q", raw)
	}

	if raw, err = field(ColumnUtilization); err != nil {
		return 0, "", m, err
	}
	if m.UtilizationRate, err = parseFinite(raw); err != nil {
		return 0, "", m, fmt.Errorf("invalid utilization %q", raw)
	}

	if raw, err = field(ColumnSLADelta); err != nil {
		return 0, "", m, err
	}
	if m.SLAContributionDelta, err = parseFinite(raw); err != nil {
		return 0, "", m, fmt.Errorf("invalid sla_delta %q", raw)
	}
	return cycle, id, m, nil
}

// parseFinite parses a float and rejects NaN and infinities, which strconv accepts.
func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}

// Next returns the recorded metrics for svc in cycle, if any.
func (c *CSVSource) Next(cycle int, svc *sim.Service) (sim.WorkloadMetrics, bool) {
	m, ok := c.rows[cycle][svc.ID]
	return m, ok
}

// ServiceIDs returns every service named in the file, sorted.
func (c *CSVSource) ServiceIDs() []string {
	ids := make([]string, 0, len(c.services))
	for id := range c.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cycles returns the highest cycle number in the file.
func (c *CSVSource) Cycles() int {
	return c.maxCycle
}

// Skipped returns the number of malformed data rows ignored while parsing.
func (c *CSVSource) Skipped() int {
	return c.skipped
}
