package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/perfhub/perfhub/modules/perftest/domain/capability"
	"github.com/perfhub/perfhub/modules/perftest/infrastructure/persistence/models"
	"github.com/perfhub/perfhub/pkg/composables"
	"github.com/perfhub/perfhub/pkg/mapping"
)

var (
	ErrCapabilityNotFound = fmt.Errorf("capability not found")
)

const (
	capabilityFindQuery = `SELECT id, name, description, objective, scope, environment, acceptance_criteria, p95_max_ms, avg_max_ms, p90_max_ms, throughput_min, created_at, updated_at FROM capabilities`
)

type CapabilityRepository struct{}

func NewCapabilityRepository() capability.Repository {
	return &CapabilityRepository{}
}

func (r *CapabilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*capability.Capability, error) {
	query := capabilityFindQuery + " WHERE id = $1"
	capabilities, err := r.queryCapabilities(ctx, query, id.String())
	if err != nil {
		return nil, err
	}

	if len(capabilities) == 0 {
		return nil, ErrCapabilityNotFound
	}

	return capabilities[0], nil
}

func (r *CapabilityRepository) GetByName(ctx context.Context, name string) (*capability.Capability, error) {
	query := capabilityFindQuery + " WHERE lower(name) = $1"
	capabilities, err := r.queryCapabilities(ctx, query, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return nil, err
	}

	if len(capabilities) == 0 {
		return nil, ErrCapabilityNotFound
	}

	return capabilities[0], nil
}

func (r *CapabilityRepository) GetPaginated(ctx context.Context, params *capability.FindParams) ([]*capability.Capability, error) {
	query := capabilityFindQuery + " ORDER BY name LIMIT $1 OFFSET $2"
	return r.queryCapabilities(ctx, query, params.Limit, params.Offset)
}

func (r *CapabilityRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM capabilities`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count capabilities")
	}
	return count, nil
}

func (r *CapabilityRepository) Create(ctx context.Context, c *capability.Capability) (*capability.Capability, error) {
	query := `
		INSERT INTO capabilities (id, name, description, objective, scope, environment, acceptance_criteria, p95_max_ms, avg_max_ms, p90_max_ms, throughput_min, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	cover := c.CoverFields()
	thresholds := c.Thresholds()

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		c.ID().String(),
		c.Name(),
		mapping.ValueToSQLNullString(c.Description()),
		mapping.ValueToSQLNullString(cover.Objective),
		mapping.ValueToSQLNullString(cover.Scope),
		mapping.ValueToSQLNullString(cover.Environment),
		mapping.ValueToSQLNullString(cover.AcceptanceCriteria),
		mapping.PointerToSQLNullInt64(thresholds.P95MaxMs),
		mapping.PointerToSQLNullFloat64(thresholds.AvgMaxMs),
		mapping.PointerToSQLNullInt64(thresholds.P90MaxMs),
		mapping.PointerToSQLNullFloat64(thresholds.ThroughputMin),
		c.CreatedAt(),
		c.UpdatedAt(),
	).Scan(&idStr); err != nil {
		return nil, errors.Wrap(err, "failed to insert capability")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *CapabilityRepository) Update(ctx context.Context, c *capability.Capability) (*capability.Capability, error) {
	query := `
		UPDATE capabilities
		SET name = $1, description = $2, objective = $3, scope = $4, environment = $5, acceptance_criteria = $6, p95_max_ms = $7, avg_max_ms = $8, p90_max_ms = $9, throughput_min = $10, updated_at = $11
		WHERE id = $12
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	cover := c.CoverFields()
	thresholds := c.Thresholds()

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		c.Name(),
		mapping.ValueToSQLNullString(c.Description()),
		mapping.ValueToSQLNullString(cover.Objective),
		mapping.ValueToSQLNullString(cover.Scope),
		mapping.ValueToSQLNullString(cover.Environment),
		mapping.ValueToSQLNullString(cover.AcceptanceCriteria),
		mapping.PointerToSQLNullInt64(thresholds.P95MaxMs),
		mapping.PointerToSQLNullFloat64(thresholds.AvgMaxMs),
		mapping.PointerToSQLNullInt64(thresholds.P90MaxMs),
		mapping.PointerToSQLNullFloat64(thresholds.ThroughputMin),
		c.UpdatedAt(),
		c.ID().String(),
	).Scan(&idStr); err != nil {
		return nil, errors.Wrap(err, "failed to update capability")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *CapabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM capabilities WHERE id = $1`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, query, id.String())
	return err
}

func (r *CapabilityRepository) queryCapabilities(ctx context.Context, query string, args ...interface{}) ([]*capability.Capability, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var capabilities []*capability.Capability
	for rows.Next() {
		var m models.Capability
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.Description,
			&m.Objective,
			&m.Scope,
			&m.Environment,
			&m.AcceptanceCriteria,
			&m.P95MaxMs,
			&m.AvgMaxMs,
			&m.P90MaxMs,
			&m.ThroughputMin,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan capability row")
		}
		entity, err := toDomainCapability(&m)
		if err != nil {
			return nil, errors.Wrap(err, "failed to map capability row")
		}
		capabilities = append(capabilities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return capabilities, nil
}
