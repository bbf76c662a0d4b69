package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestService_SettersClamp(t *testing.T) {
	svc := NewService("S1", "svc", testTime)

	svc.SetUtilizationRate(1.7)
	svc.SetSLAContribution(-0.2)
	svc.SetRequestCount(-5)
	svc.SetDependentCount(-1)

	assert.Equal(t, 1.0, svc.UtilizationRate())
	assert.Equal(t, 0.0, svc.SLAContribution())
	assert.Equal(t, 0, svc.RequestCount())
	assert.Equal(t, 0, svc.DependentCount())
}

func TestService_ApplyMetricsIgnoresNonFiniteSLADelta(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
	}{
		{"NaN", math.NaN()},
		{"+Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a service with a known SLA contribution
			svc := newLowUtilityService("S1")

			// WHEN metrics arrive with a non-finite delta
			svc.ApplyMetrics(WorkloadMetrics{RequestCount: 20, UtilizationRate: 0.1, SLAContributionDelta: tt.delta})

			// THEN the SLA contribution is unchanged and the score stays in [0,1]
			assert.Equal(t, 0.1, svc.SLAContribution())
			assert.Equal(t, 20, svc.RequestCount())
			score := mustScorer(t).Score(svc)
			assert.False(t, math.IsNaN(score))
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}

func TestService_NaNUtilizationClampsToZero(t *testing.T) {
	svc := newLowUtilityService("S1")
	svc.ApplyMetrics(WorkloadMetrics{UtilizationRate: math.NaN()})
	assert.Equal(t, 0.0, svc.UtilizationRate())

	svc.SetSLAContribution(math.NaN())
	assert.Equal(t, 0.0, svc.SLAContribution())
}

func TestService_ApplyMetricsOnRetiredServiceIsNoOp(t *testing.T) {
	svc := newLowUtilityService("S1")
	assert.True(t, svc.Retire(testTime))
	assert.False(t, svc.Retire(testTime))

	svc.ApplyMetrics(WorkloadMetrics{RequestCount: 999, UtilizationRate: 0.9, SLAContributionDelta: 0.5})

	assert.Equal(t, 10, svc.RequestCount())
	at, ok := svc.RetiredAt()
	assert.True(t, ok)
	assert.Equal(t, testTime, at)
}
