package dtos

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/perfhub/perfhub/modules/perftest/domain/baseline"
	"github.com/perfhub/perfhub/modules/perftest/domain/testrun"
	"github.com/perfhub/perfhub/modules/perftest/jtl"
	"github.com/perfhub/perfhub/modules/perftest/services"
	"github.com/perfhub/perfhub/pkg/constants"
)

// UploadTestRunDTO carries the multipart form fields that accompany a
// result file upload.
type UploadTestRunDTO struct {
	CapabilityID string `validate:"required,uuid4"`
	TestName     string `validate:"required,max=255"`
	BuildNumber  string `validate:"max=64"`
	Description  string
	UploadedBy   string `validate:"max=255"`
}

func (d *UploadTestRunDTO) Ok(_ context.Context) (map[string]string, bool) {
	errorMessages := map[string]string{}
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return errorMessages, true
	}
	for _, err := range errs.(validator.ValidationErrors) {
		errorMessages[err.Field()] = err.Tag()
	}
	return errorMessages, len(errorMessages) == 0
}

type MetricsResponse struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	AvgResponseTimeMs  float64 `json:"avg_response_time_ms"`
	MinResponseTimeMs  int64   `json:"min_response_time_ms"`
	MaxResponseTimeMs  int64   `json:"max_response_time_ms"`
	P90Ms              int64   `json:"p90_ms"`
	P95Ms              int64   `json:"p95_ms"`
	P99Ms              int64   `json:"p99_ms"`
	Throughput         float64 `json:"throughput"`
	ErrorRate          float64 `json:"error_rate"`
	DurationSeconds    float64 `json:"duration_seconds"`
}

func NewMetricsResponse(a jtl.Aggregate) *MetricsResponse {
	return &MetricsResponse{
		TotalRequests:      a.TotalRequests,
		SuccessfulRequests: a.SuccessfulRequests,
		FailedRequests:     a.FailedRequests,
		AvgResponseTimeMs:  a.AvgResponseTimeMs,
		MinResponseTimeMs:  a.MinResponseTimeMs,
		MaxResponseTimeMs:  a.MaxResponseTimeMs,
		P90Ms:              a.P90Ms,
		P95Ms:              a.P95Ms,
		P99Ms:              a.P99Ms,
		Throughput:         a.Throughput,
		ErrorRate:          a.ErrorRate,
		DurationSeconds:    a.DurationSeconds,
	}
}

type CheckResponse struct {
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Actual float64 `json:"actual"`
	Limit  float64 `json:"limit"`
}

type VerdictResponse struct {
	Overall string          `json:"overall"`
	Checks  []CheckResponse `json:"checks"`
}

func NewVerdictResponse(v baseline.Verdict) *VerdictResponse {
	checks := make([]CheckResponse, 0, len(v.Checks))
	for _, c := range v.Checks {
		checks = append(checks, CheckResponse{
			Name:   c.Name,
			Status: string(c.Status),
			Actual: c.Actual,
			Limit:  c.Limit,
		})
	}
	return &VerdictResponse{
		Overall: string(v.Overall),
		Checks:  checks,
	}
}

type TestRunResponse struct {
	ID           uuid.UUID                   `json:"id"`
	CapabilityID uuid.UUID                   `json:"capability_id"`
	TestName     string                      `json:"test_name"`
	BuildNumber  string                      `json:"build_number,omitempty"`
	Description  string                      `json:"description,omitempty"`
	UploadedBy   string                      `json:"uploaded_by,omitempty"`
	FileName     string                      `json:"file_name"`
	Status       string                      `json:"status"`
	ErrorMessage string                      `json:"error_message,omitempty"`
	ParsedRows   int                         `json:"parsed_rows"`
	SkippedRows  int                         `json:"skipped_rows"`
	Metrics      *MetricsResponse            `json:"metrics,omitempty"`
	ByLabel      map[string]*MetricsResponse `json:"by_label,omitempty"`
	Verdict      *VerdictResponse            `json:"verdict,omitempty"`
	CreatedAt    string                      `json:"created_at"`
	UpdatedAt    string                      `json:"updated_at"`
}

func NewTestRunResponse(run *testrun.TestRun) *TestRunResponse {
	resp := &TestRunResponse{
		ID:           run.ID(),
		CapabilityID: run.CapabilityID(),
		TestName:     run.TestName(),
		BuildNumber:  run.BuildNumber(),
		Description:  run.Description(),
		UploadedBy:   run.UploadedBy(),
		FileName:     run.FileName(),
		Status:       string(run.Status()),
		ErrorMessage: run.ErrorMessage(),
		ParsedRows:   run.ParsedRows(),
		SkippedRows:  run.SkippedRows(),
		CreatedAt:    run.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt:    run.UpdatedAt().UTC().Format(time.RFC3339),
	}
	if run.Summary() != nil {
		resp.Metrics = NewMetricsResponse(*run.Summary())
	}
	if len(run.LabelMetrics()) > 0 {
		resp.ByLabel = make(map[string]*MetricsResponse, len(run.LabelMetrics()))
		for label, agg := range run.LabelMetrics() {
			resp.ByLabel[label] = NewMetricsResponse(agg)
		}
	}
	return resp
}

// WithVerdict attaches an on-demand verdict to a run response.
func (r *TestRunResponse) WithVerdict(v baseline.Verdict) *TestRunResponse {
	r.Verdict = NewVerdictResponse(v)
	return r
}

type CoverResponse struct {
	Objective          string `json:"objective"`
	Scope              string `json:"scope"`
	Environment        string `json:"environment"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
}

type ReportResponse struct {
	CapabilityID   uuid.UUID                   `json:"capability_id"`
	CapabilityName string                      `json:"capability_name"`
	Cover          CoverResponse               `json:"cover"`
	RunID          uuid.UUID                   `json:"run_id"`
	TestName       string                      `json:"test_name"`
	BuildNumber    string                      `json:"build_number,omitempty"`
	Description    string                      `json:"description,omitempty"`
	FileName       string                      `json:"file_name"`
	ParsedRows     int                         `json:"parsed_rows"`
	SkippedRows    int                         `json:"skipped_rows"`
	Overall        *MetricsResponse            `json:"overall"`
	ByLabel        map[string]*MetricsResponse `json:"by_label,omitempty"`
	Verdict        *VerdictResponse            `json:"verdict"`
	GeneratedAt    string                      `json:"generated_at"`
}

func NewReportResponse(report *services.TestReport) *ReportResponse {
	byLabel := make(map[string]*MetricsResponse, len(report.ByLabel))
	for label, agg := range report.ByLabel {
		byLabel[label] = NewMetricsResponse(agg)
	}
	return &ReportResponse{
		CapabilityID:   report.CapabilityID,
		CapabilityName: report.CapabilityName,
		Cover: CoverResponse{
			Objective:          report.Cover.Objective,
			Scope:              report.Cover.Scope,
			Environment:        report.Cover.Environment,
			AcceptanceCriteria: report.Cover.AcceptanceCriteria,
		},
		RunID:       report.RunID,
		TestName:    report.TestName,
		BuildNumber: report.BuildNumber,
		Description: report.Description,
		FileName:    report.FileName,
		ParsedRows:  report.ParsedRows,
		SkippedRows: report.SkippedRows,
		Overall:     NewMetricsResponse(report.Overall),
		ByLabel:     byLabel,
		Verdict:     NewVerdictResponse(report.Verdict),
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
	}
}
