package extension

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PolicyInput carries the hook context a policy module validates
type PolicyInput struct {
	Hook   Hook
	FundID uuid.UUID

	// Buy context
	Buyer            uuid.UUID
	InvestmentAmount decimal.Decimal
	SharesReceived   decimal.Decimal

	// Redeem context
	Redeemer       uuid.UUID
	SharesQuantity decimal.Decimal

	// Transfer context
	From   uuid.UUID
	To     uuid.UUID
	Amount decimal.Decimal

	// Integration context
	Adapter        string
	SpendAssets    []valueobject.AssetAmount
	IncomingAssets []valueobject.AssetAmount
}

// PolicyModule is the capability interface for pluggable rule modules.
// Policies are pure validators: they never mutate share or asset
// state, only module-local configuration.
type PolicyModule interface {
	// ID returns the module's unique identifier
	ID() string
	// AppliesToHook reports whether the module validates the hook
	AppliesToHook(h Hook) bool
	// Validate returns nil to pass, or an error describing the violation
	Validate(in PolicyInput) error
}

// PolicyViolationError is the failure of a named policy module. It
// carries the failing module's identifier for diagnosis.
type PolicyViolationError struct {
	Module string
	Reason string
}

// Error implements the error interface
func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy %s rejected the action: %s", e.Module, e.Reason)
}

// PolicyRegistry holds a fund's ordered policy modules and requires a
// unanimous pass on every hook invocation
type PolicyRegistry struct {
	logger  *zap.Logger
	modules []PolicyModule
	ids     map[string]struct{}
}

// NewPolicyRegistry creates an empty policy registry for one fund
func NewPolicyRegistry(logger *zap.Logger) *PolicyRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyRegistry{
		logger: logger,
		ids:    make(map[string]struct{}),
	}
}

// Register appends a policy module. Module identifiers must be unique
// within a fund.
func (r *PolicyRegistry) Register(m PolicyModule) error {
	if m == nil || m.ID() == "" {
		return shared.NewDomainError("INVALID_MODULE", "Policy module must have an identifier")
	}
	if _, exists := r.ids[m.ID()]; exists {
		return shared.NewDomainError("ALREADY_REGISTERED", fmt.Sprintf("Policy module %s is already registered", m.ID()))
	}
	r.modules = append(r.modules, m)
	r.ids[m.ID()] = struct{}{}
	return nil
}

// ModuleIDs returns the registered module identifiers in order
func (r *PolicyRegistry) ModuleIDs() []string {
	ids := make([]string, len(r.modules))
	for i, m := range r.modules {
		ids[i] = m.ID()
	}
	return ids
}

// Validate invokes every module subscribed to the hook in registration
// order. A single failure rejects the triggering action with the
// failing module's identifier.
func (r *PolicyRegistry) Validate(hook Hook, in PolicyInput) error {
	in.Hook = hook
	for _, m := range r.modules {
		if !m.AppliesToHook(hook) {
			continue
		}
		if err := m.Validate(in); err != nil {
			r.logger.Warn("policy rejected action",
				zap.String("fund_id", in.FundID.String()),
				zap.String("module", m.ID()),
				zap.String("hook", hook.String()),
				zap.Error(err),
			)
			return &PolicyViolationError{Module: m.ID(), Reason: err.Error()}
		}
	}
	return nil
}
