package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfhub/perfhub/modules/perftest/domain/baseline"
	"github.com/perfhub/perfhub/modules/perftest/domain/capability"
	"github.com/perfhub/perfhub/modules/perftest/domain/testrun"
	"github.com/perfhub/perfhub/modules/perftest/jtl"
)

func fullCover() capability.CoverFields {
	return capability.CoverFields{
		Objective:          "Validate checkout latency under expected load",
		Scope:              "Checkout API endpoints",
		Environment:        "perf cluster, 4 nodes",
		AcceptanceCriteria: "p95 under 400ms at 50 req/s",
	}
}

func completedRun(t *testing.T, c *capability.Capability) *testrun.TestRun {
	t.Helper()
	agg := jtl.NewAggregator(jtl.AggregatorConfig{})
	base := time.UnixMilli(1700000000000)
	for i := 0; i < 10; i++ {
		agg.Add(jtl.Record{
			Label:          "Login",
			Timestamp:      base.Add(time.Duration(i) * time.Second),
			ResponseTimeMs: int64(100 + i*10),
			Success:        i != 0,
		})
	}
	run := testrun.New(c.ID(), "checkout baseline",
		testrun.WithBuildNumber("42"),
		testrun.WithFileName("results.jtl"),
	)
	require.NoError(t, run.Transition(testrun.StatusProcessing))
	require.NoError(t, run.Complete(agg.Result(), jtl.Stats{ParsedRows: 10}))
	return run
}

func TestResultServiceAssemble(t *testing.T) {
	f := newServiceFixture(t)
	p95Max := int64(400)
	c := f.createCapability(t,
		capability.WithCoverFields(fullCover()),
		capability.WithThresholds(baseline.Thresholds{P95MaxMs: &p95Max}),
	)
	run := completedRun(t, c)
	_, err := f.runs.Create(context.Background(), run)
	require.NoError(t, err)

	service := NewResultService(f.runs, f.capabilities)
	report, err := service.Assemble(context.Background(), run.ID())
	require.NoError(t, err)

	assert.Equal(t, c.ID(), report.CapabilityID)
	assert.Equal(t, "checkout", report.CapabilityName)
	assert.Equal(t, fullCover(), report.Cover)
	assert.Equal(t, run.ID(), report.RunID)
	assert.Equal(t, "42", report.BuildNumber)
	assert.Equal(t, 10, report.ParsedRows)
	assert.Equal(t, int64(10), report.Overall.TotalRequests)
	assert.Contains(t, report.ByLabel, "Login")
	assert.Equal(t, baseline.OverallPass, report.Verdict.Overall)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestResultServiceAssembleSingleClockRead(t *testing.T) {
	f := newServiceFixture(t)
	c := f.createCapability(t, capability.WithCoverFields(fullCover()))
	run := completedRun(t, c)
	_, err := f.runs.Create(context.Background(), run)
	require.NoError(t, err)

	service := NewResultService(f.runs, f.capabilities)
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	service.clock = func() time.Time { return fixed }

	report, err := service.Assemble(context.Background(), run.ID())
	require.NoError(t, err)
	assert.Equal(t, fixed, report.GeneratedAt)
}

func TestResultServiceAssembleIncompleteCover(t *testing.T) {
	f := newServiceFixture(t)
	c := f.createCapability(t, capability.WithCoverFields(capability.CoverFields{
		Objective: "Validate checkout latency",
	}))
	run := completedRun(t, c)
	_, err := f.runs.Create(context.Background(), run)
	require.NoError(t, err)

	service := NewResultService(f.runs, f.capabilities)
	_, err = service.Assemble(context.Background(), run.ID())
	require.ErrorIs(t, err, ErrCoverIncomplete)

	var coverErr *CoverIncompleteError
	require.ErrorAs(t, err, &coverErr)
	assert.Equal(t, []string{"scope", "environment", "acceptance_criteria"}, coverErr.Missing)
	assert.Contains(t, err.Error(), "missing: scope, environment, acceptance_criteria")
}

func TestResultServiceAssembleRequiresCompletedRun(t *testing.T) {
	f := newServiceFixture(t)
	c := f.createCapability(t, capability.WithCoverFields(fullCover()))
	run := testrun.New(c.ID(), "pending")
	_, err := f.runs.Create(context.Background(), run)
	require.NoError(t, err)

	service := NewResultService(f.runs, f.capabilities)
	_, err = service.Assemble(context.Background(), run.ID())
	require.ErrorIs(t, err, ErrRunNotCompleted)
}
