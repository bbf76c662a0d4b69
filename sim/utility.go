package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Normalization caps for the utility components.
const (
	MaxRequestsPerCycle = 1000.0
	MaxDependents       = 20.0
)

// UtilityScorer computes a bounded [0,1] utility for a service.
type UtilityScorer interface {
	Score(svc *Service) float64
}

// UtilityWeights are the relative weights of the three utility components.
// They need not sum to 1; the score is divided by their total.
type UtilityWeights struct {
	Request       float64 `yaml:"request"`
	SLA           float64 `yaml:"sla"`
	Collaboration float64 `yaml:"collaboration"`
}

// DefaultUtilityWeights returns request 0.40, SLA 0.35, collaboration 0.25.
func DefaultUtilityWeights() UtilityWeights {
	return UtilityWeights{Request: 0.40, SLA: 0.35, Collaboration: 0.25}
}

// Total returns the sum of all weights.
func (w UtilityWeights) Total() float64 {
	return w.Request + w.SLA + w.Collaboration
}

// Validate rejects negative weights and an all-zero weight vector.
func (w UtilityWeights) Validate() error {
	if w.Request < 0 || w.SLA < 0 || w.Collaboration < 0 {
		return fmt.Errorf("%w: utility weights must be non-negative, got %+v", ErrInvalidConfig, w)
	}
	if w.Total() <= 0 {
		return fmt.Errorf("%w: utility weights must not all be zero", ErrInvalidConfig)
	}
	return nil
}

// WeightedUtilityScorer scores a service as the weighted mean of its
// normalized request volume, SLA contribution and dependent count.
type WeightedUtilityScorer struct {
	weights UtilityWeights
}

// NewWeightedUtilityScorer creates a scorer with the given weights.
func NewWeightedUtilityScorer(weights UtilityWeights) (*WeightedUtilityScorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &WeightedUtilityScorer{weights: weights}, nil
}

// Weights returns the scorer's configured weights.
func (s *WeightedUtilityScorer) Weights() UtilityWeights {
	return s.weights
}

// Score computes the utility of svc from its current fields.
func (s *WeightedUtilityScorer) Score(svc *Service) float64 {
	score := s.ScoreInputs(svc.RequestCount(), svc.SLAContribution(), svc.DependentCount())
	logrus.Debugf("utility for %s: %.4f", svc.ID, score)
	return score
}

// ScoreInputs computes utility from raw inputs. Negative inputs count as zero.
func (s *WeightedUtilityScorer) ScoreInputs(requestCount int, slaContribution float64, dependentCount int) float64 {
	request := min(1, max(0, float64(requestCount))/MaxRequestsPerCycle)
	sla := clampUnit(slaContribution)
	collaboration := min(1, max(0, float64(dependentCount))/MaxDependents)

	w := s.weights
	weighted := w.Request*request + w.SLA*sla + w.Collaboration*collaboration
	return clampUnit(weighted / w.Total())
}

// Utility level labels, used for reporting only.
const (
	UtilityCritical   = "CRITICAL"
	UtilityHigh       = "HIGH"
	UtilityMedium     = "MEDIUM"
	UtilityLow        = "LOW"
	UtilityNegligible = "NEGLIGIBLE"
)

// UtilityLevel maps a utility score to a categorical label.
func UtilityLevel(score float64) string {
	switch {
	case score >= 0.8:
		return UtilityCritical
	case score >= 0.6:
		return UtilityHigh
	case score >= 0.4:
		return UtilityMedium
	case score >= 0.2:
		return UtilityLow
	default:
		return UtilityNegligible
	}
}
