package testrun

// Lifecycle events published on the application event bus.

type CreatedEvent struct {
	Result *TestRun
}

type CompletedEvent struct {
	Result *TestRun
}

type FailedEvent struct {
	Result *TestRun
	Reason string
}

func NewCreatedEvent(run *TestRun) *CreatedEvent {
	return &CreatedEvent{Result: run}
}

func NewCompletedEvent(run *TestRun) *CompletedEvent {
	return &CompletedEvent{Result: run}
}

func NewFailedEvent(run *TestRun, reason string) *FailedEvent {
	return &FailedEvent{Result: run, Reason: reason}
}
