package testrun

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid test run transition %s -> %s", e.From, e.To)
}

type FindParams struct {
	CapabilityID *uuid.UUID
	Limit        int
	Offset       int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*TestRun, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]*TestRun, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Create(ctx context.Context, run *TestRun) (*TestRun, error)
	Update(ctx context.Context, run *TestRun) (*TestRun, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
