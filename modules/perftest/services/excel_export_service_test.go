package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/perfhub/perfhub/modules/perftest/domain/baseline"
	"github.com/perfhub/perfhub/modules/perftest/domain/capability"
	"github.com/perfhub/perfhub/modules/perftest/domain/testrun"
)

func TestExcelExportServiceExport(t *testing.T) {
	f := newServiceFixture(t)
	p95Max := int64(400)
	c := f.createCapability(t, capability.WithThresholds(baseline.Thresholds{P95MaxMs: &p95Max}))
	run := completedRun(t, c)
	_, err := f.runs.Create(context.Background(), run)
	require.NoError(t, err)

	service := NewExcelExportService(f.service)
	buf, err := service.Export(context.Background(), run.ID())
	require.NoError(t, err)

	workbook, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	assert.Contains(t, sheets, "Summary")
	assert.Contains(t, sheets, "Transactions")

	name, err := workbook.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "checkout baseline", name)

	status, err := workbook.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", status)

	verdict, err := workbook.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "pass", verdict)

	header, err := workbook.GetCellValue("Transactions", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Label", header)

	label, err := workbook.GetCellValue("Transactions", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Login", label)

	samples, err := workbook.GetCellValue("Transactions", "B2")
	require.NoError(t, err)
	assert.Equal(t, "10", samples)
}

func TestExcelExportServiceRequiresCompletedRun(t *testing.T) {
	f := newServiceFixture(t)
	c := f.createCapability(t)
	run := testrun.New(c.ID(), "pending")
	_, err := f.runs.Create(context.Background(), run)
	require.NoError(t, err)

	service := NewExcelExportService(f.service)
	_, err = service.Export(context.Background(), run.ID())
	require.ErrorIs(t, err, ErrRunNotCompleted)
}
