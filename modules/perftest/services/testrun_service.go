package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/perfhub/perfhub/modules/perftest/domain/baseline"
	"github.com/perfhub/perfhub/modules/perftest/domain/capability"
	"github.com/perfhub/perfhub/modules/perftest/domain/testrun"
	"github.com/perfhub/perfhub/modules/perftest/jtl"
	"github.com/perfhub/perfhub/pkg/eventbus"
	"github.com/perfhub/perfhub/pkg/metrics"
)

// UploadDTO carries one uploaded result file plus its intake metadata.
type UploadDTO struct {
	CapabilityID uuid.UUID
	TestName     string
	BuildNumber  string
	Description  string
	UploadedBy   string
	FileName     string
	Size         int64
	File         io.Reader
}

// TestRunService owns the intake pipeline: extension and size guards,
// the single-pass parse and aggregation, baseline evaluation on demand,
// and the run's status lifecycle.
type TestRunService struct {
	runs          testrun.Repository
	capabilities  capability.Repository
	extractor     *jtl.Extractor
	aggregatorCfg jtl.AggregatorConfig
	publisher     eventbus.EventBus
}

func NewTestRunService(
	runs testrun.Repository,
	capabilities capability.Repository,
	extractor *jtl.Extractor,
	aggregatorCfg jtl.AggregatorConfig,
	publisher eventbus.EventBus,
) *TestRunService {
	return &TestRunService{
		runs:          runs,
		capabilities:  capabilities,
		extractor:     extractor,
		aggregatorCfg: aggregatorCfg,
		publisher:     publisher,
	}
}

func (s *TestRunService) GetByID(ctx context.Context, id uuid.UUID) (*testrun.TestRun, error) {
	return s.runs.GetByID(ctx, id)
}

func (s *TestRunService) GetPaginated(ctx context.Context, params *testrun.FindParams) ([]*testrun.TestRun, error) {
	return s.runs.GetPaginated(ctx, params)
}

func (s *TestRunService) Count(ctx context.Context, params *testrun.FindParams) (int64, error) {
	return s.runs.Count(ctx, params)
}

func (s *TestRunService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.runs.Delete(ctx, id)
}

// Process runs the whole intake for one uploaded file. An unsupported
// extension is rejected at the boundary, before any run exists. Every
// other fatal failure leaves a FAILED run behind with the error message
// and partial-progress counts retained. On success the returned run is
// COMPLETED and carries the aggregates.
func (s *TestRunService) Process(ctx context.Context, dto *UploadDTO) (*testrun.TestRun, error) {
	started := time.Now()

	if _, err := s.capabilities.GetByID(ctx, dto.CapabilityID); err != nil {
		return nil, err
	}

	stream, openErr := s.extractor.Open(dto.FileName, dto.Size, dto.File)
	if errors.Is(openErr, jtl.ErrUnsupportedFormat) {
		return nil, openErr
	}

	run := testrun.New(
		dto.CapabilityID,
		dto.TestName,
		testrun.WithBuildNumber(dto.BuildNumber),
		testrun.WithDescription(dto.Description),
		testrun.WithUploadedBy(dto.UploadedBy),
		testrun.WithFileName(dto.FileName),
	)
	run, err := s.runs.Create(ctx, run)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(testrun.NewCreatedEvent(run))

	if openErr != nil {
		return s.fail(ctx, run, openErr, jtl.Stats{})
	}

	if err := run.Transition(testrun.StatusProcessing); err != nil {
		return run, err
	}
	run, err = s.runs.Update(ctx, run)
	if err != nil {
		return run, err
	}

	aggregator := jtl.NewAggregator(s.aggregatorCfg)
	stats, consumeErr := aggregator.Consume(ctx, stream)
	if consumeErr != nil {
		return s.fail(ctx, run, consumeErr, stats)
	}

	if err := run.Complete(aggregator.Result(), stats); err != nil {
		return run, err
	}
	run, err = s.runs.Update(ctx, run)
	if err != nil {
		return run, err
	}
	s.publisher.Publish(testrun.NewCompletedEvent(run))

	metrics.RunsProcessed.WithLabelValues("completed").Inc()
	metrics.RowsParsed.Add(float64(stats.ParsedRows))
	metrics.RowsSkipped.Add(float64(stats.SkippedRows))
	metrics.ProcessingDuration.Observe(time.Since(started).Seconds())
	return run, nil
}

func (s *TestRunService) fail(ctx context.Context, run *testrun.TestRun, cause error, stats jtl.Stats) (*testrun.TestRun, error) {
	if err := run.Fail(cause.Error(), stats); err != nil {
		return run, err
	}
	updated, err := s.runs.Update(ctx, run)
	if err != nil {
		return run, err
	}
	s.publisher.Publish(testrun.NewFailedEvent(updated, cause.Error()))
	metrics.RunsProcessed.WithLabelValues("failed").Inc()
	return updated, cause
}

// Verdict recomputes the baseline verdict for a run against its
// capability's current thresholds.
func (s *TestRunService) Verdict(ctx context.Context, runID uuid.UUID) (baseline.Verdict, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return baseline.Verdict{}, err
	}
	c, err := s.capabilities.GetByID(ctx, run.CapabilityID())
	if err != nil {
		return baseline.Verdict{}, err
	}
	summary := jtl.Aggregate{}
	if run.Summary() != nil {
		summary = *run.Summary()
	}
	return baseline.Evaluate(summary, c.Thresholds()), nil
}
