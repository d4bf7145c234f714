package jtl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(label string, ts time.Time, elapsed int64, success bool) Record {
	return Record{
		Label:          label,
		Timestamp:      ts,
		ResponseTimeMs: elapsed,
		Success:        success,
	}
}

func TestAggregator_Empty(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	result := agg.Result()

	assert.Equal(t, Aggregate{}, result.Overall)
	assert.Empty(t, result.ByLabel)
	assert.Zero(t, result.Overall.ErrorRate)
}

func TestAggregator_CountsAndErrorRate(t *testing.T) {
	base := time.UnixMilli(1700000000000).UTC()
	agg := NewAggregator(AggregatorConfig{})
	agg.Add(record("Login", base, 100, true))
	agg.Add(record("Login", base.Add(1*time.Second), 200, true))
	agg.Add(record("Search", base.Add(2*time.Second), 300, false))
	agg.Add(record("Search", base.Add(4*time.Second), 400, false))

	overall := agg.Result().Overall
	assert.Equal(t, int64(4), overall.TotalRequests)
	assert.Equal(t, int64(2), overall.SuccessfulRequests)
	assert.Equal(t, int64(2), overall.FailedRequests)
	assert.Equal(t, overall.TotalRequests, overall.SuccessfulRequests+overall.FailedRequests)
	assert.InDelta(t, 0.5, overall.ErrorRate, 1e-9)
	assert.Equal(t, int64(100), overall.MinResponseTimeMs)
	assert.Equal(t, int64(400), overall.MaxResponseTimeMs)
	assert.InDelta(t, 250.0, overall.AvgResponseTimeMs, 1e-9)
	assert.InDelta(t, 4.0, overall.DurationSeconds, 1e-9)
	assert.InDelta(t, 1.0, overall.Throughput, 1e-9)
}

func TestAggregator_PercentileOrdering(t *testing.T) {
	base := time.UnixMilli(1700000000000).UTC()
	agg := NewAggregator(AggregatorConfig{})
	for i := int64(1); i <= 200; i++ {
		agg.Add(record("Load", base.Add(time.Duration(i)*time.Millisecond), i*10, true))
	}

	overall := agg.Result().Overall
	assert.LessOrEqual(t, overall.MinResponseTimeMs, int64(overall.AvgResponseTimeMs))
	assert.LessOrEqual(t, overall.AvgResponseTimeMs, float64(overall.MaxResponseTimeMs))
	assert.LessOrEqual(t, overall.P90Ms, overall.P95Ms)
	assert.LessOrEqual(t, overall.P95Ms, overall.P99Ms)
	assert.LessOrEqual(t, overall.P99Ms, overall.MaxResponseTimeMs)

	// Nearest rank over 1..200 scaled by 10: index ceil(p/100*200)-1.
	assert.Equal(t, int64(1800), overall.P90Ms)
	assert.Equal(t, int64(1900), overall.P95Ms)
	assert.Equal(t, int64(1980), overall.P99Ms)
}

func TestAggregator_DegenerateDistribution(t *testing.T) {
	base := time.UnixMilli(1700000000000).UTC()
	agg := NewAggregator(AggregatorConfig{})
	for i := 0; i < 100; i++ {
		agg.Add(record("Flat", base.Add(time.Duration(i)*time.Second), 500, true))
	}

	overall := agg.Result().Overall
	assert.Equal(t, int64(500), overall.P90Ms)
	assert.Equal(t, int64(500), overall.P95Ms)
	assert.Equal(t, int64(500), overall.P99Ms)
	assert.InDelta(t, 500.0, overall.AvgResponseTimeMs, 1e-9)
}

func TestAggregator_SingleRecordThroughput(t *testing.T) {
	base := time.UnixMilli(1700000000000).UTC()
	agg := NewAggregator(AggregatorConfig{})
	agg.Add(record("Solo", base, 100, true))

	overall := agg.Result().Overall
	// Zero duration is treated as one second.
	assert.Zero(t, overall.DurationSeconds)
	assert.InDelta(t, 1.0, overall.Throughput, 1e-9)
}

func TestAggregator_SharedTimestampThroughput(t *testing.T) {
	base := time.UnixMilli(1700000000000).UTC()
	agg := NewAggregator(AggregatorConfig{})
	for i := 0; i < 10; i++ {
		agg.Add(record("Burst", base, 50, true))
	}

	overall := agg.Result().Overall
	assert.Zero(t, overall.DurationSeconds)
	assert.InDelta(t, 10.0, overall.Throughput, 1e-9)
}

func TestAggregator_PerLabelBreakdown(t *testing.T) {
	base := time.UnixMilli(1700000000000).UTC()
	agg := NewAggregator(AggregatorConfig{})
	agg.Add(record("Login", base, 100, true))
	agg.Add(record("Login", base.Add(2*time.Second), 300, false))
	agg.Add(record("Search", base.Add(1*time.Second), 700, true))

	result := agg.Result()
	require.Len(t, result.ByLabel, 2)

	login := result.ByLabel["Login"]
	assert.Equal(t, int64(2), login.TotalRequests)
	assert.Equal(t, int64(1), login.FailedRequests)
	assert.InDelta(t, 0.5, login.ErrorRate, 1e-9)
	assert.InDelta(t, 2.0, login.DurationSeconds, 1e-9)

	search := result.ByLabel["Search"]
	assert.Equal(t, int64(1), search.TotalRequests)
	assert.Zero(t, search.ErrorRate)
	assert.Equal(t, int64(700), search.P99Ms)
}

func TestAggregator_SampleCapBoundsMemory(t *testing.T) {
	base := time.UnixMilli(1700000000000).UTC()
	agg := NewAggregator(AggregatorConfig{SampleCap: 10})
	for i := int64(0); i < 1000; i++ {
		agg.Add(record("Load", base.Add(time.Duration(i)*time.Millisecond), i, true))
	}

	overall := agg.Result().Overall
	// Counts and min/max stay exact even when the sample is capped.
	assert.Equal(t, int64(1000), overall.TotalRequests)
	assert.Equal(t, int64(0), overall.MinResponseTimeMs)
	assert.Equal(t, int64(999), overall.MaxResponseTimeMs)
	assert.LessOrEqual(t, overall.P99Ms, overall.MaxResponseTimeMs)
}

func TestPercentile_NearestRank(t *testing.T) {
	tests := []struct {
		name   string
		sorted []int64
		p      float64
		want   int64
	}{
		{"empty", nil, 95, 0},
		{"single", []int64{42}, 99, 42},
		{"two values p50", []int64{10, 20}, 50, 10},
		{"two values p90", []int64{10, 20}, 90, 20},
		{"exact boundary", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 90, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, percentile(tt.sorted, tt.p))
		})
	}
}
