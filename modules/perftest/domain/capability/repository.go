package capability

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	Limit  int
	Offset int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Capability, error)
	GetByName(ctx context.Context, name string) (*Capability, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]*Capability, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, c *Capability) (*Capability, error)
	Update(ctx context.Context, c *Capability) (*Capability, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
