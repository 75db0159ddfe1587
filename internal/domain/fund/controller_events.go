package fund

import (
	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/extension"
	"github.com/openfund/backend/internal/domain/integration"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Event type constants for the fund controller aggregate
const (
	EventTypeSharesBought         = "fund.shares_bought"
	EventTypeSharesRedeemed       = "fund.shares_redeemed"
	EventTypeFeeSettled           = "fund.fee_settled"
	EventTypePolicyViolated       = "fund.policy_violated"
	EventTypeIntegrationCalled    = "fund.integration_called"
	EventTypeMigrationHookInvoked = "fund.migration_hook_invoked"
	EventTypeControllerDestructed = "fund.controller_destructed"
)

const aggregateTypeController = "FundController"

// SharesBoughtEvent is emitted after a successful buy
type SharesBoughtEvent struct {
	shared.BaseDomainEvent
	Buyer      uuid.UUID       `json:"buyer"`
	Investment decimal.Decimal `json:"investment"`
	NetShares  decimal.Decimal `json:"net_shares"`
	SharePrice decimal.Decimal `json:"share_price"`
}

// NewSharesBoughtEvent creates a new SharesBoughtEvent
func NewSharesBoughtEvent(c *Controller, buyer uuid.UUID, investment, netShares, price decimal.Decimal) *SharesBoughtEvent {
	return &SharesBoughtEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSharesBought, aggregateTypeController, c.ID, c.FundID()),
		Buyer:           buyer,
		Investment:      investment,
		NetShares:       netShares,
		SharePrice:      price,
	}
}

// SharesRedeemedEvent is emitted after a successful redemption
type SharesRedeemedEvent struct {
	shared.BaseDomainEvent
	Redeemer uuid.UUID                 `json:"redeemer"`
	Quantity decimal.Decimal           `json:"quantity"`
	Payouts  []valueobject.AssetAmount `json:"payouts"`
}

// NewSharesRedeemedEvent creates a new SharesRedeemedEvent
func NewSharesRedeemedEvent(c *Controller, redeemer uuid.UUID, quantity decimal.Decimal, payouts []valueobject.AssetAmount) *SharesRedeemedEvent {
	return &SharesRedeemedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSharesRedeemed, aggregateTypeController, c.ID, c.FundID()),
		Redeemer:        redeemer,
		Quantity:        quantity,
		Payouts:         payouts,
	}
}

// FeeSettledEvent records one fee module's applied settlement
type FeeSettledEvent struct {
	shared.BaseDomainEvent
	ModuleID   string          `json:"module"`
	Hook       string          `json:"hook"`
	SharesDue  decimal.Decimal `json:"shares_due"`
	Settlement string          `json:"settlement"`
	Payer      uuid.UUID       `json:"payer"`
	Recipient  uuid.UUID       `json:"recipient"`
}

// NewFeeSettledEvent creates a new FeeSettledEvent
func NewFeeSettledEvent(c *Controller, hook extension.Hook, o extension.FeeOutcome) *FeeSettledEvent {
	return &FeeSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeeSettled, aggregateTypeController, c.ID, c.FundID()),
		ModuleID:        o.Module,
		Hook:            hook.String(),
		SharesDue:       o.SharesDue,
		Settlement:      string(o.Settlement),
		Payer:           o.Payer,
		Recipient:       o.Recipient,
	}
}

// PolicyViolatedEvent records a policy rejection. The triggering action
// is reverted; the event survives for off-chain diagnosis.
type PolicyViolatedEvent struct {
	shared.BaseDomainEvent
	ModuleID string `json:"module"`
	Hook     string `json:"hook"`
	Reason   string `json:"reason"`
}

// NewPolicyViolatedEvent creates a new PolicyViolatedEvent
func NewPolicyViolatedEvent(c *Controller, hook extension.Hook, moduleID, reason string) *PolicyViolatedEvent {
	return &PolicyViolatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePolicyViolated, aggregateTypeController, c.ID, c.FundID()),
		ModuleID:        moduleID,
		Hook:            hook.String(),
		Reason:          reason,
	}
}

// IntegrationCalledEvent records an executed integration call with the
// observed balance deltas
type IntegrationCalledEvent struct {
	shared.BaseDomainEvent
	Adapter        string                    `json:"adapter"`
	Method         string                    `json:"method"`
	SpendDeltas    []valueobject.AssetAmount `json:"spend_deltas"`
	IncomingDeltas []valueobject.AssetAmount `json:"incoming_deltas"`
}

// NewIntegrationCalledEvent creates a new IntegrationCalledEvent
func NewIntegrationCalledEvent(c *Controller, r integration.Result) *IntegrationCalledEvent {
	return &IntegrationCalledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIntegrationCalled, aggregateTypeController, c.ID, c.FundID()),
		Adapter:         r.Adapter,
		Method:          r.Method,
		SpendDeltas:     r.SpendDeltas,
		IncomingDeltas:  r.IncomingDeltas,
	}
}

// MigrationHookInvokedEvent records a migration lifecycle hook call
type MigrationHookInvokedEvent struct {
	shared.BaseDomainEvent
	Phase    string `json:"phase"`
	Outgoing bool   `json:"outgoing"`
}

// NewMigrationHookInvokedEvent creates a new MigrationHookInvokedEvent
func NewMigrationHookInvokedEvent(c *Controller, phase MigrationPhase, outgoing bool) *MigrationHookInvokedEvent {
	return &MigrationHookInvokedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMigrationHookInvoked, aggregateTypeController, c.ID, c.FundID()),
		Phase:           string(phase),
		Outgoing:        outgoing,
	}
}

// ControllerDestructedEvent is emitted when the controller is
// permanently disabled
type ControllerDestructedEvent struct {
	shared.BaseDomainEvent
}

// NewControllerDestructedEvent creates a new ControllerDestructedEvent
func NewControllerDestructedEvent(c *Controller) *ControllerDestructedEvent {
	return &ControllerDestructedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeControllerDestructed, aggregateTypeController, c.ID, c.FundID()),
	}
}
