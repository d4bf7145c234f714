package models

import (
	"database/sql"
	"time"
)

type Capability struct {
	ID                 string
	Name               string
	Description        sql.NullString
	Objective          sql.NullString
	Scope              sql.NullString
	Environment        sql.NullString
	AcceptanceCriteria sql.NullString
	P95MaxMs           sql.NullInt64
	AvgMaxMs           sql.NullFloat64
	P90MaxMs           sql.NullInt64
	ThroughputMin      sql.NullFloat64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type TestRun struct {
	ID           string
	CapabilityID string
	TestName     string
	BuildNumber  sql.NullString
	Description  sql.NullString
	UploadedBy   sql.NullString
	FileName     sql.NullString
	Status       string
	ErrorMessage sql.NullString
	ParsedRows   int
	SkippedRows  int
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Summary columns; NULL until the run completes.
	TotalRequests      sql.NullInt64
	SuccessfulRequests sql.NullInt64
	FailedRequests     sql.NullInt64
	AvgResponseTimeMs  sql.NullFloat64
	MinResponseTimeMs  sql.NullInt64
	MaxResponseTimeMs  sql.NullInt64
	P90Ms              sql.NullInt64
	P95Ms              sql.NullInt64
	P99Ms              sql.NullInt64
	Throughput         sql.NullFloat64
	ErrorRate          sql.NullFloat64
	DurationSeconds    sql.NullFloat64
}

type TestRunLabelMetric struct {
	TestRunID string
	Label     string

	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	AvgResponseTimeMs  float64
	MinResponseTimeMs  int64
	MaxResponseTimeMs  int64
	P90Ms              int64
	P95Ms              int64
	P99Ms              int64
	Throughput         float64
	ErrorRate          float64
	DurationSeconds    float64
}
