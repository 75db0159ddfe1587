package asset

import (
	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Event type constants for the vault aggregate
const (
	EventTypeSharesMinted          = "vault.shares_minted"
	EventTypeSharesBurned          = "vault.shares_burned"
	EventTypeSharesTransferred     = "vault.shares_transferred"
	EventTypeAssetDeposited        = "vault.asset_deposited"
	EventTypeAssetWithdrawn        = "vault.asset_withdrawn"
	EventTypeTrackedAssetAdded     = "vault.tracked_asset_added"
	EventTypeTrackedAssetRemoved   = "vault.tracked_asset_removed"
	EventTypeAccessorChanged       = "vault.accessor_changed"
	EventTypeAllowedCallRegistered = "vault.allowed_call_registered"
	EventTypeOwnerCallExecuted     = "vault.owner_call_executed"
)

const aggregateTypeVault = "Vault"

// SharesMintedEvent is emitted when new shares are created
type SharesMintedEvent struct {
	shared.BaseDomainEvent
	Holder      uuid.UUID       `json:"holder"`
	Amount      decimal.Decimal `json:"amount"`
	TotalSupply decimal.Decimal `json:"total_supply"`
}

// NewSharesMintedEvent creates a new SharesMintedEvent
func NewSharesMintedEvent(v *Vault, holder uuid.UUID, amount decimal.Decimal) *SharesMintedEvent {
	return &SharesMintedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSharesMinted, aggregateTypeVault, v.ID, v.ID),
		Holder:          holder,
		Amount:          amount,
		TotalSupply:     v.totalSupply.Add(amount),
	}
}

// SharesBurnedEvent is emitted when shares are destroyed
type SharesBurnedEvent struct {
	shared.BaseDomainEvent
	Holder      uuid.UUID       `json:"holder"`
	Amount      decimal.Decimal `json:"amount"`
	TotalSupply decimal.Decimal `json:"total_supply"`
}

// NewSharesBurnedEvent creates a new SharesBurnedEvent
func NewSharesBurnedEvent(v *Vault, holder uuid.UUID, amount decimal.Decimal) *SharesBurnedEvent {
	return &SharesBurnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSharesBurned, aggregateTypeVault, v.ID, v.ID),
		Holder:          holder,
		Amount:          amount,
		TotalSupply:     v.totalSupply.Sub(amount),
	}
}

// SharesTransferredEvent is emitted on every share transfer
type SharesTransferredEvent struct {
	shared.BaseDomainEvent
	From   uuid.UUID       `json:"from"`
	To     uuid.UUID       `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// NewSharesTransferredEvent creates a new SharesTransferredEvent
func NewSharesTransferredEvent(v *Vault, from, to uuid.UUID, amount decimal.Decimal) *SharesTransferredEvent {
	return &SharesTransferredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSharesTransferred, aggregateTypeVault, v.ID, v.ID),
		From:            from,
		To:              to,
		Amount:          amount,
	}
}

// AssetDepositedEvent is emitted when custody is credited
type AssetDepositedEvent struct {
	shared.BaseDomainEvent
	Asset  valueobject.AssetID `json:"asset"`
	Amount decimal.Decimal     `json:"amount"`
}

// NewAssetDepositedEvent creates a new AssetDepositedEvent
func NewAssetDepositedEvent(v *Vault, asset valueobject.AssetID, amount decimal.Decimal) *AssetDepositedEvent {
	return &AssetDepositedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAssetDeposited, aggregateTypeVault, v.ID, v.ID),
		Asset:           asset,
		Amount:          amount,
	}
}

// AssetWithdrawnEvent is emitted when custody is debited
type AssetWithdrawnEvent struct {
	shared.BaseDomainEvent
	Asset  valueobject.AssetID `json:"asset"`
	Amount decimal.Decimal     `json:"amount"`
	Target string              `json:"target"`
}

// NewAssetWithdrawnEvent creates a new AssetWithdrawnEvent
func NewAssetWithdrawnEvent(v *Vault, asset valueobject.AssetID, amount decimal.Decimal, target string) *AssetWithdrawnEvent {
	return &AssetWithdrawnEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAssetWithdrawn, aggregateTypeVault, v.ID, v.ID),
		Asset:           asset,
		Amount:          amount,
		Target:          target,
	}
}

// TrackedAssetAddedEvent is emitted when an asset joins the tracked set
type TrackedAssetAddedEvent struct {
	shared.BaseDomainEvent
	Asset valueobject.AssetID `json:"asset"`
}

// NewTrackedAssetAddedEvent creates a new TrackedAssetAddedEvent
func NewTrackedAssetAddedEvent(v *Vault, asset valueobject.AssetID) *TrackedAssetAddedEvent {
	return &TrackedAssetAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTrackedAssetAdded, aggregateTypeVault, v.ID, v.ID),
		Asset:           asset,
	}
}

// TrackedAssetRemovedEvent is emitted when an asset leaves the tracked set
type TrackedAssetRemovedEvent struct {
	shared.BaseDomainEvent
	Asset valueobject.AssetID `json:"asset"`
}

// NewTrackedAssetRemovedEvent creates a new TrackedAssetRemovedEvent
func NewTrackedAssetRemovedEvent(v *Vault, asset valueobject.AssetID) *TrackedAssetRemovedEvent {
	return &TrackedAssetRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTrackedAssetRemoved, aggregateTypeVault, v.ID, v.ID),
		Asset:           asset,
	}
}

// AccessorChangedEvent records an accessor swap with the previous and
// next accessor identifiers for off-chain observability
type AccessorChangedEvent struct {
	shared.BaseDomainEvent
	PreviousAccessor uuid.UUID `json:"previous_accessor"`
	NextAccessor     uuid.UUID `json:"next_accessor"`
}

// NewAccessorChangedEvent creates a new AccessorChangedEvent
func NewAccessorChangedEvent(v *Vault, prev, next uuid.UUID) *AccessorChangedEvent {
	return &AccessorChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeAccessorChanged, aggregateTypeVault, v.ID, v.ID),
		PreviousAccessor: prev,
		NextAccessor:     next,
	}
}

// AllowedCallRegisteredEvent is emitted when the release gate registers
// an owner-call triple
type AllowedCallRegisteredEvent struct {
	shared.BaseDomainEvent
	Contract uuid.UUID `json:"contract"`
	Method   string    `json:"method"`
}

// NewAllowedCallRegisteredEvent creates a new AllowedCallRegisteredEvent
func NewAllowedCallRegisteredEvent(v *Vault, contract uuid.UUID, method string) *AllowedCallRegisteredEvent {
	return &AllowedCallRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllowedCallRegistered, aggregateTypeVault, v.ID, v.ID),
		Contract:        contract,
		Method:          method,
	}
}

// OwnerCallExecutedEvent is emitted after a successful owner-directed call
type OwnerCallExecutedEvent struct {
	shared.BaseDomainEvent
	Contract uuid.UUID `json:"contract"`
	Method   string    `json:"method"`
}

// NewOwnerCallExecutedEvent creates a new OwnerCallExecutedEvent
func NewOwnerCallExecutedEvent(v *Vault, contract uuid.UUID, method string) *OwnerCallExecutedEvent {
	return &OwnerCallExecutedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOwnerCallExecuted, aggregateTypeVault, v.ID, v.ID),
		Contract:        contract,
		Method:          method,
	}
}
