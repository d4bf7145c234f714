package persistence

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/perfhub/perfhub/modules/perftest/domain/baseline"
	"github.com/perfhub/perfhub/modules/perftest/domain/capability"
	"github.com/perfhub/perfhub/modules/perftest/domain/testrun"
	"github.com/perfhub/perfhub/modules/perftest/infrastructure/persistence/models"
	"github.com/perfhub/perfhub/modules/perftest/jtl"
	"github.com/perfhub/perfhub/pkg/mapping"
)

func toDomainCapability(m *models.Capability) (*capability.Capability, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return capability.New(
		m.Name,
		capability.WithID(id),
		capability.WithDescription(mapping.SQLNullStringToValue(m.Description)),
		capability.WithCoverFields(capability.CoverFields{
			Objective:          mapping.SQLNullStringToValue(m.Objective),
			Scope:              mapping.SQLNullStringToValue(m.Scope),
			Environment:        mapping.SQLNullStringToValue(m.Environment),
			AcceptanceCriteria: mapping.SQLNullStringToValue(m.AcceptanceCriteria),
		}),
		capability.WithThresholds(baseline.Thresholds{
			P95MaxMs:      mapping.SQLNullInt64ToPointer(m.P95MaxMs),
			AvgMaxMs:      mapping.SQLNullFloat64ToPointer(m.AvgMaxMs),
			P90MaxMs:      mapping.SQLNullInt64ToPointer(m.P90MaxMs),
			ThroughputMin: mapping.SQLNullFloat64ToPointer(m.ThroughputMin),
		}),
		capability.WithCreatedAt(m.CreatedAt),
		capability.WithUpdatedAt(m.UpdatedAt),
	), nil
}

func toDomainTestRun(m *models.TestRun, labels []*models.TestRunLabelMetric) (*testrun.TestRun, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	capabilityID, err := uuid.Parse(m.CapabilityID)
	if err != nil {
		return nil, err
	}

	opts := []testrun.Option{
		testrun.WithID(id),
		testrun.WithBuildNumber(mapping.SQLNullStringToValue(m.BuildNumber)),
		testrun.WithDescription(mapping.SQLNullStringToValue(m.Description)),
		testrun.WithUploadedBy(mapping.SQLNullStringToValue(m.UploadedBy)),
		testrun.WithFileName(mapping.SQLNullStringToValue(m.FileName)),
		testrun.WithStatus(testrun.Status(m.Status)),
		testrun.WithErrorMessage(mapping.SQLNullStringToValue(m.ErrorMessage)),
		testrun.WithRowCounts(m.ParsedRows, m.SkippedRows),
		testrun.WithCreatedAt(m.CreatedAt),
		testrun.WithUpdatedAt(m.UpdatedAt),
	}

	if m.TotalRequests.Valid {
		summary := jtl.Aggregate{
			TotalRequests:      m.TotalRequests.Int64,
			SuccessfulRequests: m.SuccessfulRequests.Int64,
			FailedRequests:     m.FailedRequests.Int64,
			AvgResponseTimeMs:  m.AvgResponseTimeMs.Float64,
			MinResponseTimeMs:  m.MinResponseTimeMs.Int64,
			MaxResponseTimeMs:  m.MaxResponseTimeMs.Int64,
			P90Ms:              m.P90Ms.Int64,
			P95Ms:              m.P95Ms.Int64,
			P99Ms:              m.P99Ms.Int64,
			Throughput:         m.Throughput.Float64,
			ErrorRate:          m.ErrorRate.Float64,
			DurationSeconds:    m.DurationSeconds.Float64,
		}
		opts = append(opts, testrun.WithSummary(&summary))
	}

	if len(labels) > 0 {
		byLabel := make(map[string]jtl.Aggregate, len(labels))
		for _, l := range labels {
			byLabel[l.Label] = jtl.Aggregate{
				TotalRequests:      l.TotalRequests,
				SuccessfulRequests: l.SuccessfulRequests,
				FailedRequests:     l.FailedRequests,
				AvgResponseTimeMs:  l.AvgResponseTimeMs,
				MinResponseTimeMs:  l.MinResponseTimeMs,
				MaxResponseTimeMs:  l.MaxResponseTimeMs,
				P90Ms:              l.P90Ms,
				P95Ms:              l.P95Ms,
				P99Ms:              l.P99Ms,
				Throughput:         l.Throughput,
				ErrorRate:          l.ErrorRate,
				DurationSeconds:    l.DurationSeconds,
			}
		}
		opts = append(opts, testrun.WithLabelMetrics(byLabel))
	}

	return testrun.New(capabilityID, m.TestName, opts...), nil
}

func summaryColumns(run *testrun.TestRun) (totalRequests, successfulRequests, failedRequests, minMs, maxMs, p90, p95, p99 sql.NullInt64, avgMs, throughput, errorRate, duration sql.NullFloat64) {
	summary := run.Summary()
	if summary == nil {
		return
	}
	totalRequests = sql.NullInt64{Int64: summary.TotalRequests, Valid: true}
	successfulRequests = sql.NullInt64{Int64: summary.SuccessfulRequests, Valid: true}
	failedRequests = sql.NullInt64{Int64: summary.FailedRequests, Valid: true}
	minMs = sql.NullInt64{Int64: summary.MinResponseTimeMs, Valid: true}
	maxMs = sql.NullInt64{Int64: summary.MaxResponseTimeMs, Valid: true}
	p90 = sql.NullInt64{Int64: summary.P90Ms, Valid: true}
	p95 = sql.NullInt64{Int64: summary.P95Ms, Valid: true}
	p99 = sql.NullInt64{Int64: summary.P99Ms, Valid: true}
	avgMs = sql.NullFloat64{Float64: summary.AvgResponseTimeMs, Valid: true}
	throughput = sql.NullFloat64{Float64: summary.Throughput, Valid: true}
	errorRate = sql.NullFloat64{Float64: summary.ErrorRate, Valid: true}
	duration = sql.NullFloat64{Float64: summary.DurationSeconds, Valid: true}
	return
}
