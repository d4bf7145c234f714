package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfhub/perfhub/modules/perftest/jtl"
)

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func TestEvaluate_MixedVerdict(t *testing.T) {
	metrics := jtl.Aggregate{
		P95Ms:             1100,
		AvgResponseTimeMs: 650,
		P90Ms:             850,
		Throughput:        50,
	}
	thresholds := Thresholds{
		P95MaxMs:      int64Ptr(1200),
		AvgMaxMs:      float64Ptr(600),
		P90MaxMs:      int64Ptr(900),
		ThroughputMin: float64Ptr(45),
	}

	verdict := Evaluate(metrics, thresholds)
	assert.Equal(t, OverallFail, verdict.Overall)

	p95, ok := verdict.Check(CheckP95)
	require.True(t, ok)
	assert.Equal(t, CheckPass, p95.Status)

	avg, ok := verdict.Check(CheckAvg)
	require.True(t, ok)
	assert.Equal(t, CheckFail, avg.Status)

	p90, ok := verdict.Check(CheckP90)
	require.True(t, ok)
	assert.Equal(t, CheckPass, p90.Status)

	throughput, ok := verdict.Check(CheckThroughput)
	require.True(t, ok)
	assert.Equal(t, CheckPass, throughput.Status)
}

func TestEvaluate_AllPass(t *testing.T) {
	metrics := jtl.Aggregate{
		P95Ms:             500,
		AvgResponseTimeMs: 200,
		P90Ms:             400,
		Throughput:        100,
	}
	thresholds := Thresholds{
		P95MaxMs:      int64Ptr(1000),
		AvgMaxMs:      float64Ptr(500),
		P90MaxMs:      int64Ptr(800),
		ThroughputMin: float64Ptr(50),
	}
	verdict := Evaluate(metrics, thresholds)
	assert.Equal(t, OverallPass, verdict.Overall)
}

func TestEvaluate_NoThresholdsMeansNotEvaluated(t *testing.T) {
	verdict := Evaluate(jtl.Aggregate{P95Ms: 1000}, Thresholds{})
	assert.Equal(t, OverallNotEvaluated, verdict.Overall)
	for _, check := range verdict.Checks {
		assert.Equal(t, CheckSkipped, check.Status)
	}
}

func TestEvaluate_MissingThresholdSkipsOnlyThatCheck(t *testing.T) {
	metrics := jtl.Aggregate{
		P95Ms:             1500,
		AvgResponseTimeMs: 100,
		Throughput:        10,
	}
	thresholds := Thresholds{AvgMaxMs: float64Ptr(500)}

	verdict := Evaluate(metrics, thresholds)
	// p95 would fail, but no p95 threshold is configured.
	assert.Equal(t, OverallPass, verdict.Overall)

	p95, _ := verdict.Check(CheckP95)
	assert.Equal(t, CheckSkipped, p95.Status)
}

func TestEvaluate_ZeroMetricsAgainstConfiguredThresholds(t *testing.T) {
	thresholds := Thresholds{ThroughputMin: float64Ptr(45)}
	verdict := Evaluate(jtl.Aggregate{}, thresholds)

	// Zero throughput fails against a configured minimum.
	assert.Equal(t, OverallFail, verdict.Overall)
	throughput, _ := verdict.Check(CheckThroughput)
	assert.Equal(t, CheckFail, throughput.Status)
}

func TestEvaluate_BoundaryIsInclusive(t *testing.T) {
	metrics := jtl.Aggregate{
		P95Ms:             1200,
		AvgResponseTimeMs: 600,
		P90Ms:             900,
		Throughput:        45,
	}
	thresholds := Thresholds{
		P95MaxMs:      int64Ptr(1200),
		AvgMaxMs:      float64Ptr(600),
		P90MaxMs:      int64Ptr(900),
		ThroughputMin: float64Ptr(45),
	}
	verdict := Evaluate(metrics, thresholds)
	assert.Equal(t, OverallPass, verdict.Overall)
}
