package extension

import (
	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const secondsPerYear = 365 * 24 * 60 * 60

// EntranceFee charges a rate of the shares minted in a buy. With the
// burn variant the shares are burned from the buyer's fresh mint; with
// the mint variant the same quantity is minted to the recipient,
// diluting all holders.
type EntranceFee struct {
	rate      decimal.Decimal
	recipient uuid.UUID
	burn      bool
}

// NewEntranceFee creates an entrance fee. Rate is a fraction of minted
// shares in [0, 1). With burn set, shares are burned from the buyer;
// otherwise the same quantity is minted to the recipient, diluting
// every holder including the buyer.
func NewEntranceFee(rate decimal.Decimal, recipient uuid.UUID, burn bool) (*EntranceFee, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Entrance fee rate must be in [0, 1)")
	}
	if !burn && recipient == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Entrance fee recipient is required unless burning")
	}
	return &EntranceFee{rate: rate, recipient: recipient, burn: burn}, nil
}

// ID returns the module identifier
func (f *EntranceFee) ID() string { return "entrance-fee" }

// SettlesOnHook reports the hooks the entrance fee settles on
func (f *EntranceFee) SettlesOnHook(h Hook) bool { return h == HookPostBuyShares }

// UpdatesOnHook reports the hooks the entrance fee updates state on
func (f *EntranceFee) UpdatesOnHook(Hook) bool { return false }

// Settle charges rate * sharesBought against the buyer's fresh shares
func (f *EntranceFee) Settle(in FeeInput) (FeeSettlement, error) {
	due := in.SharesBought.Mul(f.rate)
	if !due.IsPositive() {
		return NoSettlement(), nil
	}
	if f.burn {
		return FeeSettlement{SharesDue: due, Settlement: SettlementBurn, Payer: in.Buyer}, nil
	}
	return FeeSettlement{SharesDue: due, Settlement: SettlementMint, Recipient: f.recipient}, nil
}

// Update is a no-op for the entrance fee
func (f *EntranceFee) Update(FeeInput) error { return nil }

// Recipient returns the fee recipient, or uuid.Nil for the burn variant
func (f *EntranceFee) Recipient() uuid.UUID {
	if f.burn {
		return uuid.Nil
	}
	return f.recipient
}

// ManagementFee accrues a pro-rata annual rate of the share supply and
// mints it to the recipient. It settles on every shares-affecting hook
// and continuously, using its LastSettled state for the accrual window.
type ManagementFee struct {
	annualRate decimal.Decimal
	recipient  uuid.UUID
}

// NewManagementFee creates a management fee with an annual rate
// fraction and a share recipient
func NewManagementFee(annualRate decimal.Decimal, recipient uuid.UUID) (*ManagementFee, error) {
	if annualRate.IsNegative() || annualRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Management fee rate must be in [0, 1)")
	}
	if recipient == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Management fee recipient is required")
	}
	return &ManagementFee{annualRate: annualRate, recipient: recipient}, nil
}

// ID returns the module identifier
func (f *ManagementFee) ID() string { return "management-fee" }

// SettlesOnHook reports the hooks the management fee settles on
func (f *ManagementFee) SettlesOnHook(h Hook) bool {
	switch h {
	case HookContinuous, HookPreBuyShares, HookPreRedeemShares:
		return true
	default:
		return false
	}
}

// UpdatesOnHook reports the hooks the management fee updates state on
func (f *ManagementFee) UpdatesOnHook(Hook) bool { return false }

// Settle mints supply * rate * elapsed/year to the recipient and
// advances the accrual window
func (f *ManagementFee) Settle(in FeeInput) (FeeSettlement, error) {
	if in.State.LastSettled.IsZero() {
		in.State.LastSettled = in.Now
		return NoSettlement(), nil
	}
	elapsed := in.Now.Sub(in.State.LastSettled).Seconds()
	in.State.LastSettled = in.Now
	if elapsed <= 0 {
		return NoSettlement(), nil
	}
	supply := in.Fund.TotalSupply()
	if !supply.IsPositive() {
		return NoSettlement(), nil
	}
	due := supply.
		Mul(f.annualRate).
		Mul(decimal.NewFromFloat(elapsed)).
		Div(decimal.NewFromInt(secondsPerYear))
	if !due.IsPositive() {
		return NoSettlement(), nil
	}
	return FeeSettlement{SharesDue: due, Settlement: SettlementMint, Recipient: f.recipient}, nil
}

// Update is a no-op for the management fee
func (f *ManagementFee) Update(FeeInput) error { return nil }

// PerformanceFee charges a rate of the value gained above the share
// price high-water mark, minted to the recipient. The high-water mark
// lives in the module's persistent state and ratchets up on every
// settlement; it is initialized on the first shares-affecting hook via
// UpdatesOnHook without producing a settlement.
type PerformanceFee struct {
	rate      decimal.Decimal
	recipient uuid.UUID
}

// NewPerformanceFee creates a performance fee with a rate fraction of
// gains above the high-water mark
func NewPerformanceFee(rate decimal.Decimal, recipient uuid.UUID) (*PerformanceFee, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Performance fee rate must be in [0, 1)")
	}
	if recipient == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Performance fee recipient is required")
	}
	return &PerformanceFee{rate: rate, recipient: recipient}, nil
}

// ID returns the module identifier
func (f *PerformanceFee) ID() string { return "performance-fee" }

// SettlesOnHook reports the hooks the performance fee settles on
func (f *PerformanceFee) SettlesOnHook(h Hook) bool {
	return h == HookContinuous || h == HookPreRedeemShares
}

// UpdatesOnHook reports the hooks the performance fee refreshes its
// high-water mark on without settling
func (f *PerformanceFee) UpdatesOnHook(h Hook) bool { return h == HookPostBuyShares }

// Settle mints rate * gained value above the high-water mark,
// converted to shares at the current price, and ratchets the mark
func (f *PerformanceFee) Settle(in FeeInput) (FeeSettlement, error) {
	price, err := in.Fund.SharePrice()
	if err != nil {
		return FeeSettlement{}, err
	}
	if !in.State.HighWaterMark.IsPositive() {
		in.State.HighWaterMark = price
		return NoSettlement(), nil
	}
	if price.LessThanOrEqual(in.State.HighWaterMark) {
		return NoSettlement(), nil
	}
	supply := in.Fund.TotalSupply()
	gained := price.Sub(in.State.HighWaterMark).Mul(supply)
	due := gained.Mul(f.rate).Div(price)
	in.State.HighWaterMark = price
	if !due.IsPositive() {
		return NoSettlement(), nil
	}
	return FeeSettlement{SharesDue: due, Settlement: SettlementMint, Recipient: f.recipient}, nil
}

// Update initializes or raises the high-water mark after a buy
func (f *PerformanceFee) Update(in FeeInput) error {
	price, err := in.Fund.SharePrice()
	if err != nil {
		return err
	}
	if price.GreaterThan(in.State.HighWaterMark) {
		in.State.HighWaterMark = price
	}
	return nil
}
