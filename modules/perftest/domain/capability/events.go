package capability

import "github.com/google/uuid"

type CreatedEvent struct {
	Result *Capability
}

type UpdatedEvent struct {
	Result *Capability
}

type DeletedEvent struct {
	ID uuid.UUID
}

func NewCreatedEvent(c *Capability) *CreatedEvent {
	return &CreatedEvent{Result: c}
}

func NewUpdatedEvent(c *Capability) *UpdatedEvent {
	return &UpdatedEvent{Result: c}
}

func NewDeletedEvent(id uuid.UUID) *DeletedEvent {
	return &DeletedEvent{ID: id}
}
