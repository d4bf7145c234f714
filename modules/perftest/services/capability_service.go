package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/perfhub/perfhub/modules/perftest/domain/capability"
	"github.com/perfhub/perfhub/pkg/eventbus"
)

type CapabilityService struct {
	repo      capability.Repository
	publisher eventbus.EventBus
}

func NewCapabilityService(repo capability.Repository, publisher eventbus.EventBus) *CapabilityService {
	return &CapabilityService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *CapabilityService) GetByID(ctx context.Context, id uuid.UUID) (*capability.Capability, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CapabilityService) GetByName(ctx context.Context, name string) (*capability.Capability, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *CapabilityService) GetPaginated(ctx context.Context, params *capability.FindParams) ([]*capability.Capability, error) {
	return s.repo.GetPaginated(ctx, params)
}

func (s *CapabilityService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *CapabilityService) Create(ctx context.Context, entity *capability.Capability) (*capability.Capability, error) {
	created, err := s.repo.Create(ctx, entity)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(capability.NewCreatedEvent(created))
	return created, nil
}

func (s *CapabilityService) Update(ctx context.Context, entity *capability.Capability) (*capability.Capability, error) {
	updated, err := s.repo.Update(ctx, entity)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(capability.NewUpdatedEvent(updated))
	return updated, nil
}

func (s *CapabilityService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publisher.Publish(capability.NewDeletedEvent(id))
	return nil
}
