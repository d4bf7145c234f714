package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/perfhub/perfhub/modules/perftest/domain/testrun"
	"github.com/perfhub/perfhub/modules/perftest/infrastructure/persistence/models"
	"github.com/perfhub/perfhub/pkg/composables"
	"github.com/perfhub/perfhub/pkg/mapping"
)

var (
	ErrTestRunNotFound = fmt.Errorf("test run not found")
)

const (
	testRunFindQuery = `SELECT id, capability_id, test_name, build_number, description, uploaded_by, file_name, status, error_message, parsed_rows, skipped_rows, total_requests, successful_requests, failed_requests, avg_response_time_ms, min_response_time_ms, max_response_time_ms, p90_ms, p95_ms, p99_ms, throughput, error_rate, duration_seconds, created_at, updated_at FROM test_runs`

	labelMetricsFindQuery = `SELECT test_run_id, label, total_requests, successful_requests, failed_requests, avg_response_time_ms, min_response_time_ms, max_response_time_ms, p90_ms, p95_ms, p99_ms, throughput, error_rate, duration_seconds FROM test_run_label_metrics WHERE test_run_id = $1 ORDER BY label`
)

type TestRunRepository struct{}

func NewTestRunRepository() testrun.Repository {
	return &TestRunRepository{}
}

func (r *TestRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*testrun.TestRun, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	row := tx.QueryRow(ctx, testRunFindQuery+" WHERE id = $1", id.String())
	var m models.TestRun
	if err := scanTestRun(row, &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestRunNotFound
		}
		return nil, errors.Wrap(err, "failed to scan test run row")
	}

	labels, err := r.queryLabelMetrics(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDomainTestRun(&m, labels)
}

func (r *TestRunRepository) GetPaginated(ctx context.Context, params *testrun.FindParams) ([]*testrun.TestRun, error) {
	if params.CapabilityID != nil {
		query := testRunFindQuery + " WHERE capability_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		return r.queryTestRuns(ctx, query, params.CapabilityID.String(), params.Limit, params.Offset)
	}
	query := testRunFindQuery + " ORDER BY created_at DESC LIMIT $1 OFFSET $2"
	return r.queryTestRuns(ctx, query, params.Limit, params.Offset)
}

func (r *TestRunRepository) Count(ctx context.Context, params *testrun.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if params.CapabilityID != nil {
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM test_runs WHERE capability_id = $1`, params.CapabilityID.String()).Scan(&count)
	} else {
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM test_runs`).Scan(&count)
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to count test runs")
	}
	return count, nil
}

func (r *TestRunRepository) Create(ctx context.Context, run *testrun.TestRun) (*testrun.TestRun, error) {
	query := `
		INSERT INTO test_runs (id, capability_id, test_name, build_number, description, uploaded_by, file_name, status, error_message, parsed_rows, skipped_rows, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		run.ID().String(),
		run.CapabilityID().String(),
		run.TestName(),
		mapping.ValueToSQLNullString(run.BuildNumber()),
		mapping.ValueToSQLNullString(run.Description()),
		mapping.ValueToSQLNullString(run.UploadedBy()),
		mapping.ValueToSQLNullString(run.FileName()),
		string(run.Status()),
		mapping.ValueToSQLNullString(run.ErrorMessage()),
		run.ParsedRows(),
		run.SkippedRows(),
		run.CreatedAt(),
		run.UpdatedAt(),
	).Scan(&idStr); err != nil {
		return nil, errors.Wrap(err, "failed to insert test run")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *TestRunRepository) Update(ctx context.Context, run *testrun.TestRun) (*testrun.TestRun, error) {
	query := `
		UPDATE test_runs
		SET status = $1, error_message = $2, parsed_rows = $3, skipped_rows = $4,
		    total_requests = $5, successful_requests = $6, failed_requests = $7,
		    avg_response_time_ms = $8, min_response_time_ms = $9, max_response_time_ms = $10,
		    p90_ms = $11, p95_ms = $12, p99_ms = $13,
		    throughput = $14, error_rate = $15, duration_seconds = $16,
		    updated_at = $17
		WHERE id = $18
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	totalRequests, successfulRequests, failedRequests, minMs, maxMs, p90, p95, p99, avgMs, throughput, errorRate, duration := summaryColumns(run)

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		string(run.Status()),
		mapping.ValueToSQLNullString(run.ErrorMessage()),
		run.ParsedRows(),
		run.SkippedRows(),
		totalRequests,
		successfulRequests,
		failedRequests,
		avgMs,
		minMs,
		maxMs,
		p90,
		p95,
		p99,
		throughput,
		errorRate,
		duration,
		run.UpdatedAt(),
		run.ID().String(),
	).Scan(&idStr); err != nil {
		return nil, errors.Wrap(err, "failed to update test run")
	}

	if err := r.replaceLabelMetrics(ctx, run); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *TestRunRepository) replaceLabelMetrics(ctx context.Context, run *testrun.TestRun) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM test_run_label_metrics WHERE test_run_id = $1`, run.ID().String()); err != nil {
		return errors.Wrap(err, "failed to clear label metrics")
	}

	insert := `
		INSERT INTO test_run_label_metrics (test_run_id, label, total_requests, successful_requests, failed_requests, avg_response_time_ms, min_response_time_ms, max_response_time_ms, p90_ms, p95_ms, p99_ms, throughput, error_rate, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	for label, agg := range run.LabelMetrics() {
		if _, err := tx.Exec(
			ctx,
			insert,
			run.ID().String(),
			label,
			agg.TotalRequests,
			agg.SuccessfulRequests,
			agg.FailedRequests,
			agg.AvgResponseTimeMs,
			agg.MinResponseTimeMs,
			agg.MaxResponseTimeMs,
			agg.P90Ms,
			agg.P95Ms,
			agg.P99Ms,
			agg.Throughput,
			agg.ErrorRate,
			agg.DurationSeconds,
		); err != nil {
			return errors.Wrap(err, "failed to insert label metrics")
		}
	}
	return nil
}

func (r *TestRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM test_runs WHERE id = $1`, id.String())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTestRun(row rowScanner, m *models.TestRun) error {
	return row.Scan(
		&m.ID,
		&m.CapabilityID,
		&m.TestName,
		&m.BuildNumber,
		&m.Description,
		&m.UploadedBy,
		&m.FileName,
		&m.Status,
		&m.ErrorMessage,
		&m.ParsedRows,
		&m.SkippedRows,
		&m.TotalRequests,
		&m.SuccessfulRequests,
		&m.FailedRequests,
		&m.AvgResponseTimeMs,
		&m.MinResponseTimeMs,
		&m.MaxResponseTimeMs,
		&m.P90Ms,
		&m.P95Ms,
		&m.P99Ms,
		&m.Throughput,
		&m.ErrorRate,
		&m.DurationSeconds,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}

func (r *TestRunRepository) queryTestRuns(ctx context.Context, query string, args ...interface{}) ([]*testrun.TestRun, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var runs []*testrun.TestRun
	for rows.Next() {
		var m models.TestRun
		if err := scanTestRun(rows, &m); err != nil {
			return nil, errors.Wrap(err, "failed to scan test run row")
		}
		entity, err := toDomainTestRun(&m, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to map test run row")
		}
		runs = append(runs, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return runs, nil
}

func (r *TestRunRepository) queryLabelMetrics(ctx context.Context, runID uuid.UUID) ([]*models.TestRunLabelMetric, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, labelMetricsFindQuery, runID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query label metrics")
	}
	defer rows.Close()

	var labels []*models.TestRunLabelMetric
	for rows.Next() {
		var m models.TestRunLabelMetric
		if err := rows.Scan(
			&m.TestRunID,
			&m.Label,
			&m.TotalRequests,
			&m.SuccessfulRequests,
			&m.FailedRequests,
			&m.AvgResponseTimeMs,
			&m.MinResponseTimeMs,
			&m.MaxResponseTimeMs,
			&m.P90Ms,
			&m.P95Ms,
			&m.P99Ms,
			&m.Throughput,
			&m.ErrorRate,
			&m.DurationSeconds,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan label metric row")
		}
		labels = append(labels, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return labels, nil
}
