package testrun

import (
	"time"

	"github.com/google/uuid"

	"github.com/perfhub/perfhub/modules/perftest/jtl"
)

// Status is the test run lifecycle. The transition UPLOADED → PROCESSING →
// COMPLETED|FAILED happens exactly once per parse attempt.
type Status string

const (
	StatusUploaded   Status = "UPLOADED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusUploaded:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

type TestRun struct {
	id           uuid.UUID
	capabilityID uuid.UUID
	testName     string
	buildNumber  string
	description  string
	uploadedBy   string
	fileName     string

	status       Status
	errorMessage string
	parsedRows   int
	skippedRows  int

	summary *jtl.Aggregate
	byLabel map[string]jtl.Aggregate

	createdAt time.Time
	updatedAt time.Time
}

type Option func(*TestRun)

func WithID(id uuid.UUID) Option {
	return func(r *TestRun) {
		r.id = id
	}
}

func WithBuildNumber(buildNumber string) Option {
	return func(r *TestRun) {
		r.buildNumber = buildNumber
	}
}

func WithDescription(description string) Option {
	return func(r *TestRun) {
		r.description = description
	}
}

func WithUploadedBy(uploadedBy string) Option {
	return func(r *TestRun) {
		r.uploadedBy = uploadedBy
	}
}

func WithFileName(fileName string) Option {
	return func(r *TestRun) {
		r.fileName = fileName
	}
}

func WithStatus(status Status) Option {
	return func(r *TestRun) {
		r.status = status
	}
}

func WithErrorMessage(message string) Option {
	return func(r *TestRun) {
		r.errorMessage = message
	}
}

func WithRowCounts(parsed, skipped int) Option {
	return func(r *TestRun) {
		r.parsedRows = parsed
		r.skippedRows = skipped
	}
}

func WithSummary(summary *jtl.Aggregate) Option {
	return func(r *TestRun) {
		r.summary = summary
	}
}

func WithLabelMetrics(byLabel map[string]jtl.Aggregate) Option {
	return func(r *TestRun) {
		r.byLabel = byLabel
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(r *TestRun) {
		r.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(r *TestRun) {
		r.updatedAt = updatedAt
	}
}

func New(capabilityID uuid.UUID, testName string, opts ...Option) *TestRun {
	r := &TestRun{
		id:           uuid.New(),
		capabilityID: capabilityID,
		testName:     testName,
		status:       StatusUploaded,
		createdAt:    time.Now(),
		updatedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *TestRun) ID() uuid.UUID {
	return r.id
}

func (r *TestRun) CapabilityID() uuid.UUID {
	return r.capabilityID
}

func (r *TestRun) TestName() string {
	return r.testName
}

func (r *TestRun) BuildNumber() string {
	return r.buildNumber
}

func (r *TestRun) Description() string {
	return r.description
}

func (r *TestRun) UploadedBy() string {
	return r.uploadedBy
}

func (r *TestRun) FileName() string {
	return r.fileName
}

func (r *TestRun) Status() Status {
	return r.status
}

func (r *TestRun) ErrorMessage() string {
	return r.errorMessage
}

func (r *TestRun) ParsedRows() int {
	return r.parsedRows
}

func (r *TestRun) SkippedRows() int {
	return r.skippedRows
}

// Summary is nil until the run completes successfully.
func (r *TestRun) Summary() *jtl.Aggregate {
	return r.summary
}

func (r *TestRun) LabelMetrics() map[string]jtl.Aggregate {
	return r.byLabel
}

func (r *TestRun) CreatedAt() time.Time {
	return r.createdAt
}

func (r *TestRun) UpdatedAt() time.Time {
	return r.updatedAt
}

// Transition moves the run to the next status, enforcing the lifecycle.
func (r *TestRun) Transition(next Status) error {
	if !r.status.CanTransitionTo(next) {
		return &InvalidTransitionError{From: r.status, To: next}
	}
	r.status = next
	r.updatedAt = time.Now()
	return nil
}

// Complete records the aggregation outcome and moves the run to COMPLETED.
func (r *TestRun) Complete(result jtl.Result, stats jtl.Stats) error {
	if err := r.Transition(StatusCompleted); err != nil {
		return err
	}
	summary := result.Overall
	r.summary = &summary
	r.byLabel = result.ByLabel
	r.parsedRows = stats.ParsedRows
	r.skippedRows = stats.SkippedRows
	return nil
}

// Fail marks the run FAILED retaining the error message and the number of
// rows processed before the failure.
func (r *TestRun) Fail(message string, stats jtl.Stats) error {
	if err := r.Transition(StatusFailed); err != nil {
		return err
	}
	r.errorMessage = message
	r.parsedRows = stats.ParsedRows
	r.skippedRows = stats.SkippedRows
	return nil
}
