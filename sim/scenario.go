package sim

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes a full simulation run, loadable from a YAML file.
// Fields absent from the file keep the values of DefaultScenario.
type Scenario struct {
	Services              int             `yaml:"services"`
	Cycles                int             `yaml:"cycles"`
	Seed                  int64           `yaml:"seed"`
	HistoryWindow         int             `yaml:"history_window"`
	Parallelism           int             `yaml:"parallelism"`
	DependencyProbability float64         `yaml:"dependency_probability"`
	Thresholds            ThresholdConfig `yaml:"thresholds"`
	Weights               UtilityWeights  `yaml:"weights"`
	Workload              WorkloadConfig  `yaml:"workload"`
	Fleet                 []ServiceSpec   `yaml:"fleet"`
}

// ThresholdConfig holds fleet-wide agent thresholds.
// Nil pointer fields mean "sample per agent" from the default ranges.
type ThresholdConfig struct {
	UtilityThreshold   *float64      `yaml:"utility_threshold"`
	RetentionWindow    *int          `yaml:"retention_window"`
	CriticalDependents int           `yaml:"critical_dependents"`
	ShutdownDelay      time.Duration `yaml:"shutdown_delay"`
}

// WorkloadConfig parameterizes the synthetic workload generator.
type WorkloadConfig struct {
	// CSVPath, when set, replays metrics from a CSV file instead of generating them.
	CSVPath          string  `yaml:"csv_path"`
	BaseRequests     int     `yaml:"base_requests"`
	AgeDecay         float64 `yaml:"age_decay"`
	AgeScale         float64 `yaml:"age_scale"`
	SLADrift         float64 `yaml:"sla_drift"`
	PopularitySpread float64 `yaml:"popularity_spread"`
}

// ServiceSpec declares one service explicitly. Per-service thresholds override ThresholdConfig.
type ServiceSpec struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	DependsOn        []string `yaml:"depends_on"`
	UtilityThreshold *float64 `yaml:"utility_threshold"`
	RetentionWindow  *int     `yaml:"retention_window"`
}

// DefaultScenario returns the stock 12-service, 40-cycle scenario.
func DefaultScenario() Scenario {
	return Scenario{
		Services:              12,
		Cycles:                40,
		Seed:                  42,
		HistoryWindow:         DefaultHistoryWindow,
		Parallelism:           1,
		DependencyProbability: 0.4,
		Thresholds:            ThresholdConfig{CriticalDependents: DefaultCriticalDependents},
		Weights:               DefaultUtilityWeights(),
		Workload: WorkloadConfig{
			BaseRequests:     800,
			AgeDecay:         0.97,
			AgeScale:         100,
			SLADrift:         0.1,
			PopularitySpread: 0.9,
		},
	}
}

// LoadScenario reads a YAML scenario file on top of DefaultScenario.
// Unknown keys are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	scenario := DefaultScenario()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &scenario, nil
}

// Validate checks ranges and fleet references.
func (s *Scenario) Validate() error {
	if len(s.Fleet) == 0 && s.Services < 1 {
		return fmt.Errorf("%w: services must be >= 1, got %d", ErrInvalidConfig, s.Services)
	}
	if s.Cycles < 0 {
		return fmt.Errorf("%w: cycles must be non-negative, got %d", ErrInvalidConfig, s.Cycles)
	}
	if s.HistoryWindow < 1 {
		return fmt.Errorf("%w: history_window must be >= 1, got %d", ErrInvalidConfig, s.HistoryWindow)
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must be non-negative, got %d", ErrInvalidConfig, s.Parallelism)
	}
	if s.DependencyProbability < 0 || s.DependencyProbability > 1 {
		return fmt.Errorf("%w: dependency_probability must be in [0,1], got %f", ErrInvalidConfig, s.DependencyProbability)
	}
	if err := s.Weights.Validate(); err != nil {
		return err
	}
	if err := s.Workload.Validate(); err != nil {
		return err
	}
	// A representative agent config catches bad fixed thresholds before any agent is built.
	probe := s.agentConfig(ServiceSpec{}, MinSampledThreshold, MinSampledWindow)
	if err := probe.Validate(); err != nil {
		return err
	}
	return s.validateFleet()
}

func (s *Scenario) validateFleet() error {
	ids := make(map[string]bool, len(s.Fleet))
	for i, spec := range s.Fleet {
		if spec.ID == "" {
			return fmt.Errorf("%w: fleet[%d] has an empty id", ErrInvalidConfig, i)
		}
		if ids[spec.ID] {
			return fmt.Errorf("%w: duplicate fleet id %q", ErrInvalidConfig, spec.ID)
		}
		ids[spec.ID] = true
	}
	for _, spec := range s.Fleet {
		cfg := s.agentConfig(spec, MinSampledThreshold, MinSampledWindow)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("fleet service %q: %w", spec.ID, err)
		}
		for _, provider := range spec.DependsOn {
			if !ids[provider] {
				return fmt.Errorf("%w: %q depends on unknown service %q", ErrInvalidConfig, spec.ID, provider)
			}
			if provider == spec.ID {
				return fmt.Errorf("%w: %q depends on itself", ErrInvalidConfig, spec.ID)
			}
		}
	}
	return nil
}

// Validate checks the synthetic generator parameters. A CSV replay skips them.
func (w WorkloadConfig) Validate() error {
	if w.CSVPath != "" {
		return nil
	}
	if w.BaseRequests < 0 {
		return fmt.Errorf("%w: workload.base_requests must be non-negative, got %d", ErrInvalidConfig, w.BaseRequests)
	}
	if w.AgeDecay <= 0 || w.AgeDecay > 1 {
		return fmt.Errorf("%w: workload.age_decay must be in (0,1], got %f", ErrInvalidConfig, w.AgeDecay)
	}
	if w.AgeScale <= 0 {
		return fmt.Errorf("%w: workload.age_scale must be positive, got %f", ErrInvalidConfig, w.AgeScale)
	}
	if w.SLADrift < 0 {
		return fmt.Errorf("%w: workload.sla_drift must be non-negative, got %f", ErrInvalidConfig, w.SLADrift)
	}
	if w.PopularitySpread < 0 || w.PopularitySpread >= 1 {
		return fmt.Errorf("%w: workload.popularity_spread must be in [0,1), got %f", ErrInvalidConfig, w.PopularitySpread)
	}
	return nil
}

// agentConfig resolves the thresholds for one service: per-service overrides,
// then fleet-wide values, then the sampled fallbacks.
func (s *Scenario) agentConfig(spec ServiceSpec, sampledThreshold float64, sampledWindow int) AgentConfig {
	cfg := AgentConfig{
		UtilityThreshold:   sampledThreshold,
		RetentionWindow:    sampledWindow,
		CriticalDependents: s.Thresholds.CriticalDependents,
		ShutdownDelay:      s.Thresholds.ShutdownDelay,
	}
	if v := s.Thresholds.UtilityThreshold; v != nil {
		cfg.UtilityThreshold = *v
	}
	if v := s.Thresholds.RetentionWindow; v != nil {
		cfg.RetentionWindow = *v
	}
	if v := spec.UtilityThreshold; v != nil {
		cfg.UtilityThreshold = *v
	}
	if v := spec.RetentionWindow; v != nil {
		cfg.RetentionWindow = *v
	}
	return cfg
}

// fleetSpecs returns the explicit fleet, or S1..Sn when none is declared.
func (s *Scenario) fleetSpecs() []ServiceSpec {
	if len(s.Fleet) > 0 {
		return s.Fleet
	}
	specs := make([]ServiceSpec, s.Services)
	for i := range specs {
		specs[i] = ServiceSpec{
			ID:   fmt.Sprintf("S%d", i+1),
			Name: fmt.Sprintf("Service-%d", i+1),
		}
	}
	return specs
}
