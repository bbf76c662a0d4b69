package sim

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUtilityHistory_EvictsOldestWhenFull(t *testing.T) {
	h := newUtilityHistory(3)
	for _, v := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		h.push(v)
	}
	assert.Equal(t, 3, h.len())
	assert.Equal(t, []float64{0.3, 0.4, 0.5}, h.snapshot())
}

func TestUtilityHistory_PartialFillKeepsInsertionOrder(t *testing.T) {
	h := newUtilityHistory(5)
	h.push(0.9)
	h.push(0.1)
	assert.Equal(t, []float64{0.9, 0.1}, h.snapshot())
}

func TestNewLifecycleLearner_RejectsNonPositiveWindow(t *testing.T) {
	for _, w := range []int{0, -1} {
		if _, err := NewLifecycleLearner(w); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("window %d: expected ErrInvalidConfig, got %v", w, err)
		}
	}
}

func TestPredictFutureUtility_NoHistoryReturnsCurrent(t *testing.T) {
	// GIVEN a learner with no observations
	learner := mustLearner(t, DefaultHistoryWindow)
	svc := NewService("a", "a", testTime)

	// THEN the prediction is exactly the current utility
	for _, u := range []float64{0, 0.123456, 0.5, 1} {
		assert.Equal(t, u, learner.PredictFutureUtility(svc, u))
	}
}

func TestPredictFutureUtility_SingleObservation(t *testing.T) {
	// GIVEN one observation of 0.6
	learner := mustLearner(t, DefaultHistoryWindow)
	svc := NewService("a", "a", testTime)
	learner.RecordObservation("a", 0.6)

	// WHEN predicting with current utility 0.5
	got := learner.PredictFutureUtility(svc, 0.5)

	// THEN trend is the single point and decay uses ln(2)
	decay := 0.5 * math.Pow(DecayFactor, math.Log(2))
	assert.InDelta(t, 0.4*0.6+0.6*decay, got, 1e-12)
}

func TestPredictFutureUtility_LinearTrendAndLogDecay(t *testing.T) {
	// GIVEN a declining history 0.5, 0.4, 0.3 (slope -0.1)
	learner := mustLearner(t, DefaultHistoryWindow)
	svc := NewService("a", "a", testTime)
	for _, v := range []float64{0.5, 0.4, 0.3} {
		learner.RecordObservation("a", v)
	}

	got := learner.PredictFutureUtility(svc, 0.3)

	// THEN trend = 0.3 + 0.5*(-0.1) = 0.25; decay = 0.3 * 0.95^ln(4)
	trend := 0.25
	decay := 0.3 * math.Pow(0.95, math.Log(4))
	assert.InDelta(t, 0.4*trend+0.6*decay, got, 1e-12)
}

func TestPredictFutureUtility_WindowBoundsHistory(t *testing.T) {
	// GIVEN a window of 3 and five observations
	learner := mustLearner(t, 3)
	for _, v := range []float64{1, 1, 0.2, 0.2, 0.2} {
		learner.RecordObservation("a", v)
	}

	// THEN only the last three are kept, so the trend is flat
	assert.Equal(t, []float64{0.2, 0.2, 0.2}, learner.History("a"))
	svc := NewService("a", "a", testTime)
	decay := 0.2 * math.Pow(0.95, math.Log(4))
	assert.InDelta(t, 0.4*0.2+0.6*decay, learner.PredictFutureUtility(svc, 0.2), 1e-12)
}

func TestPredictFutureUtility_AlwaysInUnitInterval(t *testing.T) {
	// Property: arbitrary history content (even out-of-range) yields a prediction in [0,1]
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 500; trial++ {
		learner := mustLearner(t, 1+rng.Intn(25))
		svc := NewService("x", "x", testTime)
		n := 1 + rng.Intn(40)
		for i := 0; i < n; i++ {
			learner.RecordObservation("x", rng.Float64()*3-1)
		}
		got := learner.PredictFutureUtility(svc, rng.Float64())
		if got < 0 || got > 1 || math.IsNaN(got) {
			t.Fatalf("trial %d: prediction %f outside [0,1]", trial, got)
		}
	}
}

func TestPredictFutureUtility_HistoriesAreIsolatedPerService(t *testing.T) {
	learner := mustLearner(t, DefaultHistoryWindow)
	learner.RecordObservation("a", 0.9)

	// "b" has no history so cold-start applies
	b := NewService("b", "b", testTime)
	assert.Equal(t, 0.33, learner.PredictFutureUtility(b, 0.33))
}

func TestLinearTrend_RisingSeriesClampsAtOne(t *testing.T) {
	assert.Equal(t, 1.0, linearTrend([]float64{0.6, 0.8, 1.0}))
}

func TestAgeDecay_SlowerThanPlainExponential(t *testing.T) {
	// 0.95^ln(n+1) decays slower than 0.95^n for n >= 2
	for n := 2; n <= 20; n++ {
		logScaled := ageDecay(1, n)
		plain := math.Pow(DecayFactor, float64(n))
		if logScaled <= plain {
			t.Errorf("n=%d: log-scaled decay %f should exceed plain %f", n, logScaled, plain)
		}
	}
}

func TestLifecycleLearner_Stats(t *testing.T) {
	learner := mustLearner(t, DefaultHistoryWindow)
	_, ok := learner.Stats("a")
	assert.False(t, ok)

	for _, v := range []float64{0.2, 0.4, 0.9} {
		learner.RecordObservation("a", v)
	}
	stats, ok := learner.Stats("a")
	assert.True(t, ok)
	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 0.5, stats.Mean, 1e-12)
	assert.Equal(t, 0.2, stats.Min)
	assert.Equal(t, 0.9, stats.Max)
}
