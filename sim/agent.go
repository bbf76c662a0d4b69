package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AgentState is the lifecycle state of a RetirementAgent's service.
type AgentState string

const (
	StateActive  AgentState = "ACTIVE"
	StateRetired AgentState = "RETIRED" // terminal
)

// RetirementAgent is the per-service decision unit.
//
// Each cycle it scores its service, predicts future utility, and tracks how many
// consecutive cycles both fell below its threshold. Once that streak reaches the
// retention window it asks the SafetyChecker for permission and, if granted,
// retires the service. A blocked retirement keeps the streak, so safety is
// re-checked every following cycle.
type RetirementAgent struct {
	service   *Service
	scorer    UtilityScorer
	predictor UtilityPredictor
	safety    SafetyChecker
	config    AgentConfig
	now       func() time.Time

	mu               sync.Mutex
	lowUtilityStreak int
	lastEvent        *RetirementEvent
}

// NewRetirementAgent creates an agent for svc. Returns an error if cfg is invalid.
func NewRetirementAgent(svc *Service, scorer UtilityScorer, predictor UtilityPredictor,
	safety SafetyChecker, cfg AgentConfig) (*RetirementAgent, error) {
	if svc == nil || scorer == nil || predictor == nil || safety == nil {
		return nil, fmt.Errorf("%w: agent requires a service, scorer, predictor and safety checker", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("agent for %s: %w", svc.ID, err)
	}
	return &RetirementAgent{
		service:   svc,
		scorer:    scorer,
		predictor: predictor,
		safety:    safety,
		config:    cfg,
		now:       time.Now,
	}, nil
}

// Service returns the service this agent decides for.
func (a *RetirementAgent) Service() *Service { return a.service }

// Config returns the agent's immutable thresholds.
func (a *RetirementAgent) Config() AgentConfig { return a.config }

// Threshold returns the utility threshold below which a cycle counts as low.
func (a *RetirementAgent) Threshold() float64 { return a.config.UtilityThreshold }

// RetentionWindow returns the number of consecutive low cycles required to retire.
func (a *RetirementAgent) RetentionWindow() int { return a.config.RetentionWindow }

// State returns ACTIVE or RETIRED.
func (a *RetirementAgent) State() AgentState {
	if a.service.IsRetired() {
		return StateRetired
	}
	return StateActive
}

// LowUtilityStreak returns the current count of consecutive low-utility cycles.
func (a *RetirementAgent) LowUtilityStreak() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lowUtilityStreak
}

// LastEvent returns the most recent event, or nil before the first evaluation.
func (a *RetirementAgent) LastEvent() *RetirementEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastEvent
}

// EvaluateRetirement runs one decision cycle and returns the resulting event.
// Returns nil once the service is retired.
func (a *RetirementAgent) EvaluateRetirement(ctx context.Context, cycle int) *RetirementEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	svc := a.service
	if svc.IsRetired() {
		return nil
	}

	utility := a.scorer.Score(svc)
	predicted := a.predictor.PredictFutureUtility(svc, utility)

	threshold := a.config.UtilityThreshold
	if utility < threshold && predicted < threshold {
		a.lowUtilityStreak++
	} else {
		a.lowUtilityStreak = 0
	}

	var event *RetirementEvent
	switch {
	case a.lowUtilityStreak < a.config.RetentionWindow:
		event = newRetirementEvent(svc, cycle, a.now(), utility, predicted, DecisionRetain, 0, ReasonInsufficientWindow)
	case !a.safety.CanSafelyRetire(svc):
		event = newRetirementEvent(svc, cycle, a.now(), utility, predicted, DecisionRetain, 0, ReasonCriticalDependencies)
	default:
		logrus.Infof("initiating retirement of %s after %d low-utility cycles", svc.ID, a.lowUtilityStreak)
		a.shutdown(ctx)
		at := a.now()
		svc.Retire(at)
		cpuFreed := (1 - svc.UtilizationRate()) * CPUUnitsPerService
		reason := fmt.Sprintf("low utility sustained for %d cycles with no critical dependencies", a.lowUtilityStreak)
		event = newRetirementEvent(svc, cycle, at, utility, predicted, DecisionRetire, cpuFreed, reason)
		logrus.Infof("service %s retired, %.2f CPU units freed", svc.ID, cpuFreed)
	}

	a.lastEvent = event
	return event
}

// shutdown waits out the simulated drain period. Cancellation is logged and
// does not stop the retirement.
func (a *RetirementAgent) shutdown(ctx context.Context) {
	if a.config.ShutdownDelay <= 0 {
		return
	}
	timer := time.NewTimer(a.config.ShutdownDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		logrus.Warnf("shutdown of %s interrupted (%v), completing retirement", a.service.ID, ctx.Err())
	}
}

func (a *RetirementAgent) String() string {
	return fmt.Sprintf("RetirementAgent{service=%s, streak=%d, state=%s}", a.service.ID, a.LowUtilityStreak(), a.State())
}
