package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perfhub/perfhub/modules/perftest/domain/baseline"
	"github.com/perfhub/perfhub/modules/perftest/domain/capability"
	"github.com/perfhub/perfhub/modules/perftest/domain/testrun"
	"github.com/perfhub/perfhub/modules/perftest/jtl"
	"github.com/perfhub/perfhub/pkg/serrors"
)

var (
	ErrRunNotCompleted = serrors.NewError(
		"REPORT_RUN_NOT_COMPLETED",
		"report requires a completed test run",
		"",
	)
	ErrCoverIncomplete = serrors.NewError(
		"REPORT_COVER_INCOMPLETE",
		"capability cover page is incomplete",
		"",
	)
)

// CoverIncompleteError lists every cover-page field still blank on the
// run's capability, so callers can present the whole list at once
// instead of one field per attempt.
type CoverIncompleteError struct {
	Missing []string
}

func (e *CoverIncompleteError) Error() string {
	return ErrCoverIncomplete.WithDetails("missing: " + strings.Join(e.Missing, ", ")).Error()
}

func (e *CoverIncompleteError) Unwrap() error {
	return ErrCoverIncomplete
}

// TestReport is the assembled document for one completed run: the
// capability's cover narratives, the run's aggregates, and the verdict
// against the capability's thresholds. GeneratedAt comes from a single
// clock read during assembly.
type TestReport struct {
	CapabilityID   uuid.UUID
	CapabilityName string
	Cover          capability.CoverFields

	RunID       uuid.UUID
	TestName    string
	BuildNumber string
	Description string
	FileName    string
	ParsedRows  int
	SkippedRows int

	Overall jtl.Aggregate
	ByLabel map[string]jtl.Aggregate
	Verdict baseline.Verdict

	GeneratedAt time.Time
}

// ResultService assembles reports from completed runs and their capabilities.
type ResultService struct {
	runs         testrun.Repository
	capabilities capability.Repository
	clock        func() time.Time
}

func NewResultService(runs testrun.Repository, capabilities capability.Repository) *ResultService {
	return &ResultService{
		runs:         runs,
		capabilities: capabilities,
		clock:        time.Now,
	}
}

// Assemble builds the report for one run. The run must be COMPLETED and
// its capability's cover page must be fully filled in; otherwise the
// error names what is missing.
func (s *ResultService) Assemble(ctx context.Context, runID uuid.UUID) (*TestReport, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status() != testrun.StatusCompleted {
		return nil, ErrRunNotCompleted.WithDetails(fmt.Sprintf("run is %s", run.Status()))
	}
	c, err := s.capabilities.GetByID(ctx, run.CapabilityID())
	if err != nil {
		return nil, err
	}
	if missing := c.CoverFields().MissingFields(); len(missing) > 0 {
		return nil, &CoverIncompleteError{Missing: missing}
	}

	summary := jtl.Aggregate{}
	if run.Summary() != nil {
		summary = *run.Summary()
	}

	return &TestReport{
		CapabilityID:   c.ID(),
		CapabilityName: c.Name(),
		Cover:          c.CoverFields(),
		RunID:          run.ID(),
		TestName:       run.TestName(),
		BuildNumber:    run.BuildNumber(),
		Description:    run.Description(),
		FileName:       run.FileName(),
		ParsedRows:     run.ParsedRows(),
		SkippedRows:    run.SkippedRows(),
		Overall:        summary,
		ByLabel:        run.LabelMetrics(),
		Verdict:        baseline.Evaluate(summary, c.Thresholds()),
		GeneratedAt:    s.clock(),
	}, nil
}
