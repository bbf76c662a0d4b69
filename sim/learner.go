package sim

import (
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultHistoryWindow is the number of utility observations kept per service.
	DefaultHistoryWindow = 20

	// DecayFactor is raised to ln(historyLength+1), not to historyLength.
	DecayFactor = 0.95

	trendWeight    = 0.4
	decayWeight    = 0.6
	trendInfluence = 0.5 // fraction of the fitted slope projected forward
)

// UtilityPredictor predicts a service's future utility from its current utility.
type UtilityPredictor interface {
	PredictFutureUtility(svc *Service, currentUtility float64) float64
}

// UtilityLearner is a UtilityPredictor that learns from recorded observations.
type UtilityLearner interface {
	UtilityPredictor
	RecordObservation(serviceID string, utility float64)
	Stats(serviceID string) (HistoryStats, bool)
}

// HistoryStats summarizes a service's recorded utility window.
type HistoryStats struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

// LifecycleLearner keeps a bounded utility history per service and predicts
// future utility by blending a linear trend over the history with an
// age-scaled decay of the current utility.
//
// Histories are created lazily on first observation. Safe for concurrent use.
type LifecycleLearner struct {
	window int

	mu        sync.Mutex
	histories map[string]*utilityHistory
}

// NewLifecycleLearner creates a learner keeping at most window observations per service.
func NewLifecycleLearner(window int) (*LifecycleLearner, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: history window must be >= 1, got %d", ErrInvalidConfig, window)
	}
	return &LifecycleLearner{
		window:    window,
		histories: make(map[string]*utilityHistory),
	}, nil
}

// Window returns the per-service history capacity.
func (l *LifecycleLearner) Window() int {
	return l.window
}

// RecordObservation appends utility to the service's history, evicting the oldest
// observation once the window is full.
func (l *LifecycleLearner) RecordObservation(serviceID string, utility float64) {
	l.mu.Lock()
	h, ok := l.histories[serviceID]
	if !ok {
		h = newUtilityHistory(l.window)
		l.histories[serviceID] = h
	}
	h.push(utility)
	l.mu.Unlock()
	logrus.Debugf("recorded utility for %s: %.4f", serviceID, utility)
}

// History returns a copy of the service's history, oldest first.
func (l *LifecycleLearner) History(serviceID string) []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.histories[serviceID]
	if !ok {
		return nil
	}
	return h.snapshot()
}

// PredictFutureUtility returns currentUtility unchanged when the service has no
// history. Otherwise it returns 0.4*trend + 0.6*decay, clamped to [0,1].
func (l *LifecycleLearner) PredictFutureUtility(svc *Service, currentUtility float64) float64 {
	history := l.History(svc.ID)
	if len(history) == 0 {
		return currentUtility
	}

	trend := linearTrend(history)
	decay := ageDecay(currentUtility, len(history))
	predicted := clampUnit(trendWeight*trend + decayWeight*decay)
	logrus.Debugf("predicted utility for %s: %.4f (trend=%.4f, decay=%.4f)", svc.ID, predicted, trend, decay)
	return predicted
}

// Stats summarizes a service's history. Returns false if nothing was recorded.
func (l *LifecycleLearner) Stats(serviceID string) (HistoryStats, bool) {
	history := l.History(serviceID)
	if len(history) == 0 {
		return HistoryStats{}, false
	}
	stats := HistoryStats{Count: len(history), Min: history[0], Max: history[0]}
	sum := 0.0
	for _, v := range history {
		sum += v
		stats.Min = min(stats.Min, v)
		stats.Max = max(stats.Max, v)
	}
	stats.Mean = sum / float64(len(history))
	return stats, true
}

// linearTrend fits an ordinary least-squares line over (index, value) and
// projects the last value half a step along the slope. values must be non-empty.
func linearTrend(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return values[n-1]
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	fn := float64(n)
	slope := (fn*sumXY - sumX*sumY) / (fn*sumX2 - sumX*sumX)
	return clampUnit(values[n-1] + trendInfluence*slope)
}

// ageDecay decays currentUtility by DecayFactor^ln(historyLength+1).
func ageDecay(currentUtility float64, historyLength int) float64 {
	return clampUnit(currentUtility * math.Pow(DecayFactor, math.Log(float64(historyLength+1))))
}
