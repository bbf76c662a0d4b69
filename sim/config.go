package sim

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Ranges agent thresholds are sampled from when a scenario does not fix them.
const (
	MinSampledThreshold = 0.25
	MaxSampledThreshold = 0.45
	MinSampledWindow    = 5
	MaxSampledWindow    = 10 // exclusive
)

// AgentConfig holds the thresholds of one RetirementAgent.
// Immutable once the agent is constructed.
type AgentConfig struct {
	// UtilityThreshold: utility and predicted utility below this count as a low-utility cycle.
	UtilityThreshold float64
	// RetentionWindow: consecutive low-utility cycles required before retirement is considered.
	RetentionWindow int
	// CriticalDependents: dependent count at which retirement is blocked.
	CriticalDependents int
	// ShutdownDelay is the simulated drain period before the retire transition.
	ShutdownDelay time.Duration
}

// NewAgentConfig creates an AgentConfig with the default critical dependent
// count and no shutdown delay.
func NewAgentConfig(threshold float64, window int) AgentConfig {
	return AgentConfig{
		UtilityThreshold:   threshold,
		RetentionWindow:    window,
		CriticalDependents: DefaultCriticalDependents,
	}
}

// Validate rejects values that would change decision semantics if clamped.
func (c AgentConfig) Validate() error {
	if c.UtilityThreshold < 0 || c.UtilityThreshold > 1 {
		return fmt.Errorf("%w: utility threshold must be in [0,1], got %f", ErrInvalidConfig, c.UtilityThreshold)
	}
	if c.RetentionWindow < 1 {
		return fmt.Errorf("%w: retention window must be >= 1, got %d", ErrInvalidConfig, c.RetentionWindow)
	}
	if c.CriticalDependents < 1 {
		return fmt.Errorf("%w: critical dependents must be >= 1, got %d", ErrInvalidConfig, c.CriticalDependents)
	}
	if c.ShutdownDelay < 0 {
		return fmt.Errorf("%w: shutdown delay must be non-negative, got %s", ErrInvalidConfig, c.ShutdownDelay)
	}
	return nil
}
