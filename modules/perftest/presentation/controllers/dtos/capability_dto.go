package dtos

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/perfhub/perfhub/modules/perftest/domain/baseline"
	"github.com/perfhub/perfhub/modules/perftest/domain/capability"
	"github.com/perfhub/perfhub/pkg/constants"
)

// APIError standardizes JSON error responses.
type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

type SaveCapabilityDTO struct {
	Name               string   `json:"name" validate:"required,max=255"`
	Description        string   `json:"description"`
	Objective          string   `json:"objective"`
	Scope              string   `json:"scope"`
	Environment        string   `json:"environment"`
	AcceptanceCriteria string   `json:"acceptance_criteria"`
	P95MaxMs           *int64   `json:"p95_max_ms" validate:"omitempty,min=0"`
	AvgMaxMs           *float64 `json:"avg_max_ms" validate:"omitempty,min=0"`
	P90MaxMs           *int64   `json:"p90_max_ms" validate:"omitempty,min=0"`
	ThroughputMin      *float64 `json:"throughput_min" validate:"omitempty,min=0"`
}

func (d *SaveCapabilityDTO) Ok(_ context.Context) (map[string]string, bool) {
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

func (d *SaveCapabilityDTO) cover() capability.CoverFields {
	return capability.CoverFields{
		Objective:          d.Objective,
		Scope:              d.Scope,
		Environment:        d.Environment,
		AcceptanceCriteria: d.AcceptanceCriteria,
	}
}

func (d *SaveCapabilityDTO) thresholds() baseline.Thresholds {
	return baseline.Thresholds{
		P95MaxMs:      d.P95MaxMs,
		AvgMaxMs:      d.AvgMaxMs,
		P90MaxMs:      d.P90MaxMs,
		ThroughputMin: d.ThroughputMin,
	}
}

func (d *SaveCapabilityDTO) ToEntity() *capability.Capability {
	return capability.New(
		d.Name,
		capability.WithDescription(d.Description),
		capability.WithCoverFields(d.cover()),
		capability.WithThresholds(d.thresholds()),
	)
}

func (d *SaveCapabilityDTO) Apply(c *capability.Capability) *capability.Capability {
	c.SetName(d.Name)
	c.SetDescription(d.Description)
	c.SetCoverFields(d.cover())
	c.SetThresholds(d.thresholds())
	return c
}

type CapabilityResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Objective          string    `json:"objective"`
	Scope              string    `json:"scope"`
	Environment        string    `json:"environment"`
	AcceptanceCriteria string    `json:"acceptance_criteria"`
	P95MaxMs           *int64    `json:"p95_max_ms,omitempty"`
	AvgMaxMs           *float64  `json:"avg_max_ms,omitempty"`
	P90MaxMs           *int64    `json:"p90_max_ms,omitempty"`
	ThroughputMin      *float64  `json:"throughput_min,omitempty"`
	MissingCoverFields []string  `json:"missing_cover_fields,omitempty"`
	CreatedAt          string    `json:"created_at"`
	UpdatedAt          string    `json:"updated_at"`
}

func NewCapabilityResponse(c *capability.Capability) *CapabilityResponse {
	cover := c.CoverFields()
	thresholds := c.Thresholds()
	return &CapabilityResponse{
		ID:                 c.ID(),
		Name:               c.Name(),
		Description:        c.Description(),
		Objective:          cover.Objective,
		Scope:              cover.Scope,
		Environment:        cover.Environment,
		AcceptanceCriteria: cover.AcceptanceCriteria,
		P95MaxMs:           thresholds.P95MaxMs,
		AvgMaxMs:           thresholds.AvgMaxMs,
		P90MaxMs:           thresholds.P90MaxMs,
		ThroughputMin:      thresholds.ThroughputMin,
		MissingCoverFields: cover.MissingFields(),
		CreatedAt:          c.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt:          c.UpdatedAt().UTC().Format(time.RFC3339),
	}
}
