package release

import (
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
)

// Event type constants for the release and migration aggregates
const (
	EventTypeStatusChanged      = "release.status_changed"
	EventTypeFundCreated        = "release.fund_created"
	EventTypeFundRegistered     = "migration.fund_registered"
	EventTypeMigrationSignaled  = "migration.signaled"
	EventTypeMigrationExecuted  = "migration.executed"
	EventTypeMigrationCancelled = "migration.cancelled"
)

const (
	aggregateTypeRelease     = "Release"
	aggregateTypeCoordinator = "MigrationCoordinator"
)

// StatusChangedEvent records a release lifecycle transition
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	From string `json:"from"`
	To   string `json:"to"`
}

// NewStatusChangedEvent creates a new StatusChangedEvent
func NewStatusChangedEvent(r *Release, from, to Status) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStatusChanged, aggregateTypeRelease, r.ID, uuid.Nil),
		From:            string(from),
		To:              string(to),
	}
}

// FundCreatedEvent records the creation of a fund through the release
type FundCreatedEvent struct {
	shared.BaseDomainEvent
	ControllerID uuid.UUID           `json:"controller_id"`
	Owner        uuid.UUID           `json:"owner"`
	Denomination valueobject.AssetID `json:"denomination"`
}

// NewFundCreatedEvent creates a new FundCreatedEvent
func NewFundCreatedEvent(r *Release, fundID, controllerID, owner uuid.UUID, denom valueobject.AssetID) *FundCreatedEvent {
	return &FundCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFundCreated, aggregateTypeRelease, r.ID, fundID),
		ControllerID:    controllerID,
		Owner:           owner,
		Denomination:    denom,
	}
}

// FundRegisteredEvent records the initial controller wiring of a fund
type FundRegisteredEvent struct {
	shared.BaseDomainEvent
	ControllerID uuid.UUID `json:"controller_id"`
}

// NewFundRegisteredEvent creates a new FundRegisteredEvent
func NewFundRegisteredEvent(c *Coordinator, fundID, controllerID uuid.UUID) *FundRegisteredEvent {
	return &FundRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFundRegistered, aggregateTypeCoordinator, c.ID, fundID),
		ControllerID:    controllerID,
	}
}

// MigrationSignaledEvent records an opened migration request
type MigrationSignaledEvent struct {
	shared.BaseDomainEvent
	OutgoingController uuid.UUID `json:"outgoing_controller"`
	IncomingController uuid.UUID `json:"incoming_controller"`
	ExecutableAfter    time.Time `json:"executable_after"`
}

// NewMigrationSignaledEvent creates a new MigrationSignaledEvent
func NewMigrationSignaledEvent(c *Coordinator, fundID, outgoing, incoming uuid.UUID, executableAfter time.Time) *MigrationSignaledEvent {
	return &MigrationSignaledEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeMigrationSignaled, aggregateTypeCoordinator, c.ID, fundID),
		OutgoingController: outgoing,
		IncomingController: incoming,
		ExecutableAfter:    executableAfter,
	}
}

// MigrationExecutedEvent records an executed accessor swap
type MigrationExecutedEvent struct {
	shared.BaseDomainEvent
	OutgoingController uuid.UUID `json:"outgoing_controller"`
	IncomingController uuid.UUID `json:"incoming_controller"`
}

// NewMigrationExecutedEvent creates a new MigrationExecutedEvent
func NewMigrationExecutedEvent(c *Coordinator, fundID, outgoing, incoming uuid.UUID) *MigrationExecutedEvent {
	return &MigrationExecutedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeMigrationExecuted, aggregateTypeCoordinator, c.ID, fundID),
		OutgoingController: outgoing,
		IncomingController: incoming,
	}
}

// MigrationCancelledEvent records a withdrawn migration request
type MigrationCancelledEvent struct {
	shared.BaseDomainEvent
	IncomingController uuid.UUID `json:"incoming_controller"`
}

// NewMigrationCancelledEvent creates a new MigrationCancelledEvent
func NewMigrationCancelledEvent(c *Coordinator, fundID, incoming uuid.UUID) *MigrationCancelledEvent {
	return &MigrationCancelledEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeMigrationCancelled, aggregateTypeCoordinator, c.ID, fundID),
		IncomingController: incoming,
	}
}
