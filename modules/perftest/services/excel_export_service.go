package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/perfhub/perfhub/modules/perftest/domain/baseline"
	"github.com/perfhub/perfhub/modules/perftest/domain/testrun"
	"github.com/perfhub/perfhub/modules/perftest/jtl"
)

const (
	summarySheet = "Summary"
	labelsSheet  = "Transactions"
)

// ExcelExportService renders a completed test run as an xlsx workbook
// with a summary sheet and a per-transaction breakdown sheet.
type ExcelExportService struct {
	runs *TestRunService
}

func NewExcelExportService(runs *TestRunService) *ExcelExportService {
	return &ExcelExportService{runs: runs}
}

func (s *ExcelExportService) Export(ctx context.Context, runID uuid.UUID) (*bytes.Buffer, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status() != testrun.StatusCompleted {
		return nil, ErrRunNotCompleted.WithDetails(fmt.Sprintf("run is %s", run.Status()))
	}
	verdict, err := s.runs.Verdict(ctx, runID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, errors.Wrap(err, "failed to rename summary sheet")
	}
	if err := s.writeSummary(f, run, verdict); err != nil {
		return nil, err
	}
	if err := s.writeLabels(f, run); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize workbook")
	}
	return buf, nil
}

func (s *ExcelExportService) writeSummary(f *excelize.File, run *testrun.TestRun, verdict baseline.Verdict) error {
	summary := jtl.Aggregate{}
	if run.Summary() != nil {
		summary = *run.Summary()
	}

	rows := [][]interface{}{
		{"Test name", run.TestName()},
		{"Build", run.BuildNumber()},
		{"File", run.FileName()},
		{"Status", string(run.Status())},
		{"Verdict", string(verdict.Overall)},
		{"Rows parsed", run.ParsedRows()},
		{"Rows skipped", run.SkippedRows()},
		{},
		{"Samples", summary.TotalRequests},
		{"Errors", summary.FailedRequests},
		{"Error rate", summary.ErrorRate},
		{"Avg (ms)", summary.AvgResponseTimeMs},
		{"Min (ms)", summary.MinResponseTimeMs},
		{"Max (ms)", summary.MaxResponseTimeMs},
		{"P90 (ms)", summary.P90Ms},
		{"P95 (ms)", summary.P95Ms},
		{"P99 (ms)", summary.P99Ms},
		{"Throughput (req/s)", summary.Throughput},
		{"Duration (s)", summary.DurationSeconds},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "failed to address summary cell")
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return errors.Wrap(err, "failed to write summary row")
		}
	}

	checksStart := len(rows) + 2
	header := []interface{}{"Check", "Status", "Actual", "Limit"}
	cell, err := excelize.CoordinatesToCellName(1, checksStart)
	if err != nil {
		return errors.Wrap(err, "failed to address checks header")
	}
	if err := f.SetSheetRow(summarySheet, cell, &header); err != nil {
		return errors.Wrap(err, "failed to write checks header")
	}
	for i, check := range verdict.Checks {
		row := []interface{}{check.Name, string(check.Status), check.Actual, check.Limit}
		cell, err := excelize.CoordinatesToCellName(1, checksStart+1+i)
		if err != nil {
			return errors.Wrap(err, "failed to address check row")
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return errors.Wrap(err, "failed to write check row")
		}
	}
	return nil
}

func (s *ExcelExportService) writeLabels(f *excelize.File, run *testrun.TestRun) error {
	if _, err := f.NewSheet(labelsSheet); err != nil {
		return errors.Wrap(err, "failed to create transactions sheet")
	}

	header := []interface{}{
		"Label", "Samples", "Errors", "Error rate",
		"Avg (ms)", "Min (ms)", "Max (ms)",
		"P90 (ms)", "P95 (ms)", "P99 (ms)",
		"Throughput (req/s)",
	}
	if err := f.SetSheetRow(labelsSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write transactions header")
	}

	labels := make([]string, 0, len(run.LabelMetrics()))
	for label := range run.LabelMetrics() {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for i, label := range labels {
		agg := run.LabelMetrics()[label]
		row := []interface{}{
			label, agg.TotalRequests, agg.FailedRequests, agg.ErrorRate,
			agg.AvgResponseTimeMs, agg.MinResponseTimeMs, agg.MaxResponseTimeMs,
			agg.P90Ms, agg.P95Ms, agg.P99Ms,
			agg.Throughput,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "failed to address transaction row")
		}
		if err := f.SetSheetRow(labelsSheet, cell, &row); err != nil {
			return errors.Wrap(err, "failed to write transaction row")
		}
	}
	return nil
}
