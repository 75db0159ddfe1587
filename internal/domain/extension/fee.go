package extension

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettlementType declares how a fee module's shares due are realized
type SettlementType string

const (
	// SettlementNone produces no settlement
	SettlementNone SettlementType = "none"
	// SettlementDirect pulls denomination asset from the vault to the recipient
	SettlementDirect SettlementType = "direct"
	// SettlementMint dilutes holders by minting new shares to the recipient
	SettlementMint SettlementType = "mint"
	// SettlementBurn reduces the payer's shares without crediting anyone
	SettlementBurn SettlementType = "burn"
)

// IsValid returns true if the settlement type is known
func (t SettlementType) IsValid() bool {
	switch t {
	case SettlementNone, SettlementDirect, SettlementMint, SettlementBurn:
		return true
	default:
		return false
	}
}

// FundView gives modules a live read of fund economics. Modules must
// read through it rather than caching values, because an earlier
// module's settlement changes the supply and gross asset value seen by
// later modules.
type FundView interface {
	FundID() uuid.UUID
	FundOwner() uuid.UUID
	TotalSupply() decimal.Decimal
	BalanceOf(holder uuid.UUID) decimal.Decimal
	GrossAssetValue() (decimal.Decimal, error)
	SharePrice() (decimal.Decimal, error)
}

// Settler applies fee settlements with the accessor's authority over
// the vault. Implemented by the fund controller.
type Settler interface {
	MintSharesTo(to uuid.UUID, amount decimal.Decimal) error
	BurnSharesFrom(from uuid.UUID, amount decimal.Decimal) error
	PayoutDenomination(to uuid.UUID, amount decimal.Decimal) error
}

// FeeState is the module-local persistent state kept per fund per fee
// module. It is created when the fee is registered and mutated on
// every hook at which the module settles or updates.
type FeeState struct {
	LastSettled   time.Time
	HighWaterMark decimal.Decimal
}

func (s FeeState) clone() FeeState {
	return FeeState{LastSettled: s.LastSettled, HighWaterMark: s.HighWaterMark}
}

// FeeInput carries the hook context a fee module settles against
type FeeInput struct {
	Hook Hook
	Now  time.Time
	Fund FundView

	// Buy context
	Buyer            uuid.UUID
	InvestmentAmount decimal.Decimal
	SharesBought     decimal.Decimal

	// Redeem context
	Redeemer       uuid.UUID
	SharesRedeemed decimal.Decimal

	// State is the module's own persistent state; modules may mutate it
	State *FeeState
}

// FeeSettlement is a module's answer to a settlement hook
type FeeSettlement struct {
	SharesDue  decimal.Decimal
	Settlement SettlementType
	// Payer owes the shares for Burn settlements
	Payer uuid.UUID
	// Recipient receives shares (Mint) or denomination asset (Direct)
	Recipient uuid.UUID
}

// NoSettlement is returned by modules that owe nothing on a hook
func NoSettlement() FeeSettlement {
	return FeeSettlement{SharesDue: decimal.Zero, Settlement: SettlementNone}
}

// FeeModule is the capability interface for pluggable fee modules
type FeeModule interface {
	// ID returns the module's unique identifier
	ID() string
	// SettlesOnHook reports whether the module settles on the hook
	SettlesOnHook(h Hook) bool
	// UpdatesOnHook reports whether the module refreshes internal
	// state on the hook without producing a settlement
	UpdatesOnHook(h Hook) bool
	// Settle computes the shares due on a settlement hook
	Settle(in FeeInput) (FeeSettlement, error)
	// Update refreshes module state on an update hook
	Update(in FeeInput) error
}

// FeeOutcome records one module's applied settlement
type FeeOutcome struct {
	Module     string
	SharesDue  decimal.Decimal
	Settlement SettlementType
	Payer      uuid.UUID
	Recipient  uuid.UUID
}

// FeeRegistry holds a fund's ordered fee modules and drives settlement.
// Modules are invoked in registration order and each settlement is
// applied immediately, so module N's settlement is visible to module N+1.
type FeeRegistry struct {
	logger  *zap.Logger
	modules []FeeModule
	states  map[string]*FeeState
}

// NewFeeRegistry creates an empty fee registry for one fund
func NewFeeRegistry(logger *zap.Logger) *FeeRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeRegistry{
		logger: logger,
		states: make(map[string]*FeeState),
	}
}

// Register appends a fee module. Module identifiers must be unique
// within a fund.
func (r *FeeRegistry) Register(m FeeModule) error {
	if m == nil || m.ID() == "" {
		return shared.NewDomainError("INVALID_MODULE", "Fee module must have an identifier")
	}
	if _, exists := r.states[m.ID()]; exists {
		return shared.NewDomainError("ALREADY_REGISTERED", fmt.Sprintf("Fee module %s is already registered", m.ID()))
	}
	r.modules = append(r.modules, m)
	r.states[m.ID()] = &FeeState{HighWaterMark: decimal.Zero}
	return nil
}

// ModuleIDs returns the registered module identifiers in order
func (r *FeeRegistry) ModuleIDs() []string {
	ids := make([]string, len(r.modules))
	for i, m := range r.modules {
		ids[i] = m.ID()
	}
	return ids
}

// State returns the persistent state of a registered module
func (r *FeeRegistry) State(moduleID string) (FeeState, bool) {
	s, ok := r.states[moduleID]
	if !ok {
		return FeeState{}, false
	}
	return s.clone(), true
}

// InvokeHook calls every module subscribed to the hook in registration
// order, applying each settlement through the settler before moving on.
// Shares due must never be negative.
func (r *FeeRegistry) InvokeHook(hook Hook, in FeeInput, settler Settler) ([]FeeOutcome, error) {
	var outcomes []FeeOutcome
	for _, m := range r.modules {
		in.State = r.states[m.ID()]
		if m.SettlesOnHook(hook) {
			settlement, err := m.Settle(in)
			if err != nil {
				return nil, err
			}
			if settlement.SharesDue.IsNegative() {
				return nil, shared.NewDomainError("NEGATIVE_FEE", fmt.Sprintf("Fee module %s reported negative shares due", m.ID()))
			}
			if err := r.applySettlement(m.ID(), in, settlement, settler); err != nil {
				return nil, err
			}
			if settlement.SharesDue.IsPositive() && settlement.Settlement != SettlementNone {
				outcomes = append(outcomes, FeeOutcome{
					Module:     m.ID(),
					SharesDue:  settlement.SharesDue,
					Settlement: settlement.Settlement,
					Payer:      settlement.Payer,
					Recipient:  settlement.Recipient,
				})
			}
		}
		if m.UpdatesOnHook(hook) {
			if err := m.Update(in); err != nil {
				return nil, err
			}
		}
	}
	return outcomes, nil
}

func (r *FeeRegistry) applySettlement(moduleID string, in FeeInput, s FeeSettlement, settler Settler) error {
	if s.SharesDue.IsZero() || s.Settlement == SettlementNone {
		return nil
	}
	if !s.Settlement.IsValid() {
		return shared.NewDomainError("INVALID_SETTLEMENT", fmt.Sprintf("Fee module %s declared unknown settlement type %q", moduleID, s.Settlement))
	}
	switch s.Settlement {
	case SettlementMint:
		if s.Recipient == uuid.Nil {
			return shared.NewDomainError("INVALID_SETTLEMENT", fmt.Sprintf("Fee module %s mint settlement requires a recipient", moduleID))
		}
		if err := settler.MintSharesTo(s.Recipient, s.SharesDue); err != nil {
			return err
		}
	case SettlementBurn:
		if s.Payer == uuid.Nil {
			return shared.NewDomainError("INVALID_SETTLEMENT", fmt.Sprintf("Fee module %s burn settlement requires a payer", moduleID))
		}
		if err := settler.BurnSharesFrom(s.Payer, s.SharesDue); err != nil {
			return err
		}
	case SettlementDirect:
		if s.Recipient == uuid.Nil {
			return shared.NewDomainError("INVALID_SETTLEMENT", fmt.Sprintf("Fee module %s direct settlement requires a recipient", moduleID))
		}
		price, err := in.Fund.SharePrice()
		if err != nil {
			return err
		}
		if err := settler.PayoutDenomination(s.Recipient, s.SharesDue.Mul(price)); err != nil {
			return err
		}
	}
	r.logger.Info("fee settled",
		zap.String("fund_id", in.Fund.FundID().String()),
		zap.String("module", moduleID),
		zap.String("hook", in.Hook.String()),
		zap.String("shares_due", s.SharesDue.String()),
		zap.String("settlement", string(s.Settlement)),
	)
	return nil
}

// TakeSnapshot copies all module states so a failed operation can roll
// them back together with the vault
func (r *FeeRegistry) TakeSnapshot() map[string]FeeState {
	snap := make(map[string]FeeState, len(r.states))
	for id, s := range r.states {
		snap[id] = s.clone()
	}
	return snap
}

// Restore rolls module states back to a snapshot
func (r *FeeRegistry) Restore(snap map[string]FeeState) {
	for id, s := range snap {
		if cur, ok := r.states[id]; ok {
			*cur = s.clone()
		}
	}
}
