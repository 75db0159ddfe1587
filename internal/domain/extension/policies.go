package extension

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AssetWhitelist rejects integration calls whose incoming assets are
// not on the fund's approved list
type AssetWhitelist struct {
	allowed map[valueobject.AssetID]struct{}
}

// NewAssetWhitelist creates an asset whitelist policy
func NewAssetWhitelist(assets []valueobject.AssetID) (*AssetWhitelist, error) {
	if len(assets) == 0 {
		return nil, shared.NewDomainError("INVALID_SETTINGS", "Asset whitelist requires at least one asset")
	}
	allowed := make(map[valueobject.AssetID]struct{}, len(assets))
	for _, a := range assets {
		if a.IsZero() {
			return nil, shared.NewDomainError("INVALID_SETTINGS", "Asset whitelist entries cannot be empty")
		}
		allowed[a] = struct{}{}
	}
	return &AssetWhitelist{allowed: allowed}, nil
}

// ID returns the module identifier
func (p *AssetWhitelist) ID() string { return "asset-whitelist" }

// AppliesToHook reports the hooks the whitelist validates
func (p *AssetWhitelist) AppliesToHook(h Hook) bool { return h == HookPostCallOnIntegration }

// Validate requires every incoming asset to be whitelisted
func (p *AssetWhitelist) Validate(in PolicyInput) error {
	for _, aa := range in.IncomingAssets {
		if _, ok := p.allowed[aa.Asset()]; !ok {
			return fmt.Errorf("incoming asset %s is not whitelisted", aa.Asset())
		}
	}
	return nil
}

// InvestmentLimits bounds the denomination-asset amount of a single
// buy. A zero maximum means unbounded above.
type InvestmentLimits struct {
	min decimal.Decimal
	max decimal.Decimal
}

// NewInvestmentLimits creates an investment limits policy
func NewInvestmentLimits(min, max decimal.Decimal) (*InvestmentLimits, error) {
	if min.IsNegative() || max.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SETTINGS", "Investment limits cannot be negative")
	}
	if max.IsPositive() && min.GreaterThan(max) {
		return nil, shared.NewDomainError("INVALID_SETTINGS", "Minimum investment exceeds maximum")
	}
	return &InvestmentLimits{min: min, max: max}, nil
}

// ID returns the module identifier
func (p *InvestmentLimits) ID() string { return "investment-limits" }

// AppliesToHook reports the hooks the limits validate
func (p *InvestmentLimits) AppliesToHook(h Hook) bool { return h == HookPostBuyShares }

// Validate bounds the investment amount
func (p *InvestmentLimits) Validate(in PolicyInput) error {
	if in.InvestmentAmount.LessThan(p.min) {
		return fmt.Errorf("investment %s is below the minimum %s", in.InvestmentAmount, p.min)
	}
	if p.max.IsPositive() && in.InvestmentAmount.GreaterThan(p.max) {
		return fmt.Errorf("investment %s exceeds the maximum %s", in.InvestmentAmount, p.max)
	}
	return nil
}

// HolderWhitelist restricts who may acquire shares, on buys and on
// transfers alike
type HolderWhitelist struct {
	allowed map[uuid.UUID]struct{}
}

// NewHolderWhitelist creates a holder whitelist policy
func NewHolderWhitelist(holders []uuid.UUID) (*HolderWhitelist, error) {
	if len(holders) == 0 {
		return nil, shared.NewDomainError("INVALID_SETTINGS", "Holder whitelist requires at least one holder")
	}
	allowed := make(map[uuid.UUID]struct{}, len(holders))
	for _, h := range holders {
		if h == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_SETTINGS", "Holder whitelist entries cannot be empty")
		}
		allowed[h] = struct{}{}
	}
	return &HolderWhitelist{allowed: allowed}, nil
}

// ID returns the module identifier
func (p *HolderWhitelist) ID() string { return "holder-whitelist" }

// AppliesToHook reports the hooks the whitelist validates
func (p *HolderWhitelist) AppliesToHook(h Hook) bool {
	return h == HookPostBuyShares || h == HookPreTransferShares
}

// Validate requires the acquiring party to be whitelisted
func (p *HolderWhitelist) Validate(in PolicyInput) error {
	acquirer := in.Buyer
	if in.Hook == HookPreTransferShares {
		acquirer = in.To
	}
	if _, ok := p.allowed[acquirer]; !ok {
		return fmt.Errorf("holder %s is not whitelisted", acquirer)
	}
	return nil
}
