package capability

import (
	"time"

	"github.com/google/uuid"

	"github.com/perfhub/perfhub/modules/perftest/domain/baseline"
)

// CoverFields are the narrative sections a report needs before it can be
// generated.
type CoverFields struct {
	Objective          string
	Scope              string
	Environment        string
	AcceptanceCriteria string
}

// MissingFields returns the names of required cover-page fields that are
// still blank, in a fixed order.
func (f CoverFields) MissingFields() []string {
	var missing []string
	if f.Objective == "" {
		missing = append(missing, "objective")
	}
	if f.Scope == "" {
		missing = append(missing, "scope")
	}
	if f.Environment == "" {
		missing = append(missing, "environment")
	}
	if f.AcceptanceCriteria == "" {
		missing = append(missing, "acceptance_criteria")
	}
	return missing
}

type Capability struct {
	id          uuid.UUID
	name        string
	description string
	cover       CoverFields
	thresholds  baseline.Thresholds
	createdAt   time.Time
	updatedAt   time.Time
}

type Option func(*Capability)

func WithID(id uuid.UUID) Option {
	return func(c *Capability) {
		c.id = id
	}
}

func WithDescription(description string) Option {
	return func(c *Capability) {
		c.description = description
	}
}

func WithCoverFields(cover CoverFields) Option {
	return func(c *Capability) {
		c.cover = cover
	}
}

func WithThresholds(thresholds baseline.Thresholds) Option {
	return func(c *Capability) {
		c.thresholds = thresholds
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(c *Capability) {
		c.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(c *Capability) {
		c.updatedAt = updatedAt
	}
}

func New(name string, opts ...Option) *Capability {
	c := &Capability{
		id:        uuid.New(),
		name:      name,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Capability) ID() uuid.UUID {
	return c.id
}

func (c *Capability) Name() string {
	return c.name
}

func (c *Capability) Description() string {
	return c.description
}

func (c *Capability) CoverFields() CoverFields {
	return c.cover
}

func (c *Capability) Thresholds() baseline.Thresholds {
	return c.thresholds
}

func (c *Capability) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Capability) UpdatedAt() time.Time {
	return c.updatedAt
}

func (c *Capability) SetName(name string) {
	c.name = name
	c.updatedAt = time.Now()
}

func (c *Capability) SetDescription(description string) {
	c.description = description
	c.updatedAt = time.Now()
}

func (c *Capability) SetCoverFields(cover CoverFields) {
	c.cover = cover
	c.updatedAt = time.Now()
}

func (c *Capability) SetThresholds(thresholds baseline.Thresholds) {
	c.thresholds = thresholds
	c.updatedAt = time.Now()
}
