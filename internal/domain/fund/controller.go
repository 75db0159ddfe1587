package fund

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/asset"
	"github.com/openfund/backend/internal/domain/extension"
	"github.com/openfund/backend/internal/domain/integration"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/openfund/backend/internal/domain/valuation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// State is the controller's lifecycle state
type State string

const (
	// StateUninitialized is the state before the coordinator wires the
	// controller to its vault
	StateUninitialized State = "uninitialized"
	// StateActive is the normal operating state
	StateActive State = "active"
	// StateDestructed is terminal: reached after migrating out or an
	// explicit shutdown, all further calls fail
	StateDestructed State = "destructed"
)

// MigrationPhase names the lifecycle hooks the migration coordinator
// invokes on the outgoing and incoming controllers
type MigrationPhase string

const (
	PhasePreSignal   MigrationPhase = "pre_signal"
	PhasePreMigrate  MigrationPhase = "pre_migrate"
	PhasePostMigrate MigrationPhase = "post_migrate"
	PhasePostCancel  MigrationPhase = "post_cancel"
)

// Controller is the logic component of a fund: it orchestrates share
// issuance and redemption, drives the integration router and the fee
// and policy registries in hook order, and holds the accessor
// capability over the vault. Execution is strictly single-threaded per
// fund; the application layer serializes calls.
type Controller struct {
	shared.BaseAggregateRoot

	state    State
	vault    *asset.Vault
	oracle   valuation.Oracle
	router   *integration.Router
	fees     *extension.FeeRegistry
	policies *extension.PolicyRegistry
	clock    shared.Clock
	logger   *zap.Logger

	coordinatorID        uuid.UUID
	sharesActionTimelock time.Duration
	lastSharesAction     map[uuid.UUID]time.Time
}

// NewController creates a fund controller in the uninitialized state.
// The migration coordinator activates it when wiring it to the vault.
func NewController(
	vault *asset.Vault,
	oracle valuation.Oracle,
	router *integration.Router,
	fees *extension.FeeRegistry,
	policies *extension.PolicyRegistry,
	clock shared.Clock,
	coordinatorID uuid.UUID,
	sharesActionTimelock time.Duration,
	logger *zap.Logger,
) (*Controller, error) {
	if vault == nil {
		return nil, shared.NewDomainError("INVALID_VAULT", "Vault is required")
	}
	if oracle == nil {
		return nil, shared.NewDomainError("INVALID_ORACLE", "Valuation oracle is required")
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if fees == nil {
		fees = extension.NewFeeRegistry(logger)
	}
	if policies == nil {
		policies = extension.NewPolicyRegistry(logger)
	}
	if sharesActionTimelock < 0 {
		return nil, shared.NewDomainError("INVALID_TIMELOCK", "Shares-action timelock cannot be negative")
	}
	return &Controller{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		state:                StateUninitialized,
		vault:                vault,
		oracle:               oracle,
		router:               router,
		fees:                 fees,
		policies:             policies,
		clock:                clock,
		logger:               logger,
		coordinatorID:        coordinatorID,
		sharesActionTimelock: sharesActionTimelock,
		lastSharesAction:     make(map[uuid.UUID]time.Time),
	}, nil
}

// State returns the controller's lifecycle state
func (c *Controller) State() State {
	return c.state
}

// Vault returns the vault the controller directs
func (c *Controller) Vault() *asset.Vault {
	return c.vault
}

// Fees returns the fund's fee registry
func (c *Controller) Fees() *extension.FeeRegistry {
	return c.fees
}

// Policies returns the fund's policy registry
func (c *Controller) Policies() *extension.PolicyRegistry {
	return c.policies
}

// Activate transitions the controller to active. Callable only by the
// migration coordinator when it wires the controller as the vault's
// accessor.
func (c *Controller) Activate(caller uuid.UUID) error {
	if caller != c.coordinatorID {
		return shared.ErrUnauthorized
	}
	if c.state != StateUninitialized {
		return shared.ErrInvalidState
	}
	c.state = StateActive
	return nil
}

func (c *Controller) requireActive() error {
	switch c.state {
	case StateActive:
		return nil
	case StateDestructed:
		return shared.ErrFundDestructed
	default:
		return shared.ErrInvalidState
	}
}

// AccessorID identifies the controller as the vault's accessor
func (c *Controller) AccessorID() uuid.UUID {
	return c.ID
}

// FundID returns the fund identifier (the vault's ID)
func (c *Controller) FundID() uuid.UUID {
	return c.vault.ID
}

// FundOwner returns the fund owner
func (c *Controller) FundOwner() uuid.UUID {
	return c.vault.Owner()
}

// TotalSupply returns the current share supply
func (c *Controller) TotalSupply() decimal.Decimal {
	return c.vault.TotalSupply()
}

// BalanceOf returns a holder's share balance
func (c *Controller) BalanceOf(holder uuid.UUID) decimal.Decimal {
	return c.vault.BalanceOf(holder)
}

// GrossAssetValue values every tracked asset in the denomination asset
// through the valuation oracle. It is invalid whenever any tracked
// asset's valuation is invalid.
func (c *Controller) GrossAssetValue() (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range c.vault.TrackedAssets() {
		value, err := c.oracle.ValueOf(a, c.vault.AssetBalance(a), c.vault.DenominationAsset)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(value)
	}
	return total, nil
}

// SharePrice returns the gross asset value per share, defined as one
// denomination-asset unit when the supply is zero
func (c *Controller) SharePrice() (decimal.Decimal, error) {
	supply := c.vault.TotalSupply()
	if supply.IsZero() {
		return decimal.NewFromInt(1), nil
	}
	gav, err := c.GrossAssetValue()
	if err != nil {
		return decimal.Zero, err
	}
	return gav.Div(supply), nil
}

// MintSharesTo mints shares with the controller's accessor authority.
// Part of the fee settlement capability.
func (c *Controller) MintSharesTo(to uuid.UUID, amount decimal.Decimal) error {
	return c.vault.MintShares(c.ID, to, amount)
}

// BurnSharesFrom burns shares with the controller's accessor authority.
// Part of the fee settlement capability.
func (c *Controller) BurnSharesFrom(from uuid.UUID, amount decimal.Decimal) error {
	return c.vault.BurnShares(c.ID, from, amount)
}

// PayoutDenomination withdraws denomination asset to a fee recipient.
// Part of the fee settlement capability.
func (c *Controller) PayoutDenomination(to uuid.UUID, amount decimal.Decimal) error {
	return c.vault.WithdrawAssetTo(c.ID, c.vault.DenominationAsset, amount, to.String())
}

// BuyShares converts an investment in the denomination asset into
// newly minted shares for the buyer. Fee settlement runs before and
// after the mint; policy validation runs after and reverts the whole
// buy on failure. Fails when the buyer's net shares fall below
// minShares or any tracked asset's valuation is invalid.
func (c *Controller) BuyShares(ctx context.Context, buyer uuid.UUID, investment, minShares decimal.Decimal) (decimal.Decimal, error) {
	if err := c.requireActive(); err != nil {
		return decimal.Zero, err
	}
	if buyer == uuid.Nil {
		return decimal.Zero, shared.NewDomainError("INVALID_BUYER", "Buyer cannot be empty")
	}
	if !investment.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Investment amount must be positive")
	}
	if minShares.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Minimum shares cannot be negative")
	}

	vaultSnap := c.vault.TakeSnapshot()
	feeSnap := c.fees.TakeSnapshot()
	revert := func() {
		c.vault.Restore(vaultSnap)
		c.fees.Restore(feeSnap)
	}

	now := c.clock.Now()
	in := extension.FeeInput{
		Now:              now,
		Fund:             c,
		Buyer:            buyer,
		InvestmentAmount: investment,
	}

	// Pre-issuance fees settle against the pre-investment value and
	// may dilute the buyer by minting to fee recipients first.
	in.Hook = extension.HookPreBuyShares
	preOutcomes, err := c.fees.InvokeHook(extension.HookPreBuyShares, in, c)
	if err != nil {
		revert()
		return decimal.Zero, err
	}

	price, err := c.SharePrice()
	if err != nil {
		revert()
		return decimal.Zero, err
	}
	sharesBought := investment.Div(price)

	if err := c.vault.DepositAsset(c.vault.DenominationAsset, investment); err != nil {
		revert()
		return decimal.Zero, err
	}
	preBalance := c.vault.BalanceOf(buyer)
	if err := c.vault.MintShares(c.ID, buyer, sharesBought); err != nil {
		revert()
		return decimal.Zero, err
	}

	in.Hook = extension.HookPostBuyShares
	in.SharesBought = sharesBought
	postOutcomes, err := c.fees.InvokeHook(extension.HookPostBuyShares, in, c)
	if err != nil {
		revert()
		return decimal.Zero, err
	}

	netShares := c.vault.BalanceOf(buyer).Sub(preBalance)
	if err := c.policies.Validate(extension.HookPostBuyShares, extension.PolicyInput{
		FundID:           c.FundID(),
		Buyer:            buyer,
		InvestmentAmount: investment,
		SharesReceived:   netShares,
	}); err != nil {
		revert()
		c.recordPolicyViolation(extension.HookPostBuyShares, err)
		return decimal.Zero, err
	}
	if netShares.LessThan(minShares) {
		revert()
		return decimal.Zero, shared.NewDomainError("INSUFFICIENT_SHARES_OUT",
			fmt.Sprintf("Received %s shares, below the minimum %s", netShares, minShares))
	}

	c.lastSharesAction[buyer] = now
	c.recordFeeOutcomes(extension.HookPreBuyShares, preOutcomes)
	c.recordFeeOutcomes(extension.HookPostBuyShares, postOutcomes)
	c.AddDomainEvent(NewSharesBoughtEvent(c, buyer, investment, netShares, price))
	c.logger.Info("shares bought",
		zap.String("fund_id", c.FundID().String()),
		zap.String("buyer", buyer.String()),
		zap.String("investment", investment.String()),
		zap.String("shares", netShares.String()),
	)
	return netShares, nil
}

// RedeemShares redeems a share quantity for the redeemer's pro-rata
// slice of every tracked asset. Any failed asset transfer reverts the
// whole redemption.
func (c *Controller) RedeemShares(ctx context.Context, redeemer uuid.UUID, quantity decimal.Decimal) ([]valueobject.AssetAmount, error) {
	return c.redeemShares(ctx, redeemer, quantity, nil)
}

// RedeemSharesWithSkip redeems like RedeemShares but excludes the
// sender-chosen assetsToSkip from the payout: skipped assets are not
// transferred and their pro-rata value is forfeited. Transfers of
// non-skipped assets must still all succeed.
func (c *Controller) RedeemSharesWithSkip(ctx context.Context, redeemer uuid.UUID, quantity decimal.Decimal, assetsToSkip []valueobject.AssetID) ([]valueobject.AssetAmount, error) {
	return c.redeemShares(ctx, redeemer, quantity, assetsToSkip)
}

func (c *Controller) redeemShares(_ context.Context, redeemer uuid.UUID, quantity decimal.Decimal, assetsToSkip []valueobject.AssetID) ([]valueobject.AssetAmount, error) {
	if err := c.requireActive(); err != nil {
		return nil, err
	}
	if redeemer == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REDEEMER", "Redeemer cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Redemption quantity must be positive")
	}

	vaultSnap := c.vault.TakeSnapshot()
	feeSnap := c.fees.TakeSnapshot()
	revert := func() {
		c.vault.Restore(vaultSnap)
		c.fees.Restore(feeSnap)
	}

	if err := c.policies.Validate(extension.HookPreRedeemShares, extension.PolicyInput{
		FundID:         c.FundID(),
		Redeemer:       redeemer,
		SharesQuantity: quantity,
	}); err != nil {
		c.recordPolicyViolation(extension.HookPreRedeemShares, err)
		return nil, err
	}

	now := c.clock.Now()
	outcomes, err := c.fees.InvokeHook(extension.HookPreRedeemShares, extension.FeeInput{
		Hook:           extension.HookPreRedeemShares,
		Now:            now,
		Fund:           c,
		Redeemer:       redeemer,
		SharesRedeemed: quantity,
	}, c)
	if err != nil {
		revert()
		return nil, err
	}

	// Fee settlement may have burned part of the redeemer's balance;
	// the quantity is checked against fresh state.
	if c.vault.BalanceOf(redeemer).LessThan(quantity) {
		revert()
		return nil, shared.ErrInsufficientShares
	}

	skip := make(map[valueobject.AssetID]struct{}, len(assetsToSkip))
	for _, a := range assetsToSkip {
		skip[a] = struct{}{}
	}

	supply := c.vault.TotalSupply()
	proRata := quantity.Div(supply)
	var payouts []valueobject.AssetAmount
	for _, a := range c.vault.TrackedAssets() {
		if _, skipped := skip[a]; skipped {
			continue
		}
		owed := c.vault.AssetBalance(a).Mul(proRata)
		if !owed.IsPositive() {
			continue
		}
		if err := c.vault.WithdrawAssetTo(c.ID, a, owed, redeemer.String()); err != nil {
			revert()
			return nil, err
		}
		payouts = append(payouts, valueobject.MustAssetAmount(a, owed))
	}

	if err := c.vault.BurnShares(c.ID, redeemer, quantity); err != nil {
		revert()
		return nil, err
	}

	c.lastSharesAction[redeemer] = now
	c.recordFeeOutcomes(extension.HookPreRedeemShares, outcomes)
	c.AddDomainEvent(NewSharesRedeemedEvent(c, redeemer, quantity, payouts))
	c.logger.Info("shares redeemed",
		zap.String("fund_id", c.FundID().String()),
		zap.String("redeemer", redeemer.String()),
		zap.String("quantity", quantity.String()),
		zap.Int("payout_assets", len(payouts)),
	)
	return payouts, nil
}

// CallOnIntegration forwards an adapter call through the integration
// router and validates the resulting spend/receive deltas against the
// fund's policies. Fund owner only.
func (c *Controller) CallOnIntegration(ctx context.Context, caller uuid.UUID, adapterID, method string, payload []byte) (integration.Result, error) {
	if err := c.requireActive(); err != nil {
		return integration.Result{}, err
	}
	if !c.vault.IsOwner(caller) {
		return integration.Result{}, shared.ErrUnauthorized
	}
	if c.router == nil {
		return integration.Result{}, shared.NewDomainError("NO_ROUTER", "Fund has no integration router")
	}

	vaultSnap := c.vault.TakeSnapshot()

	result, err := c.router.CallOnIntegration(ctx, c.vault, c.ID, adapterID, method, payload)
	if err != nil {
		c.vault.Restore(vaultSnap)
		return integration.Result{}, err
	}

	if err := c.policies.Validate(extension.HookPostCallOnIntegration, extension.PolicyInput{
		FundID:         c.FundID(),
		Adapter:        adapterID,
		SpendAssets:    result.SpendDeltas,
		IncomingAssets: result.IncomingDeltas,
	}); err != nil {
		c.vault.Restore(vaultSnap)
		c.recordPolicyViolation(extension.HookPostCallOnIntegration, err)
		return integration.Result{}, err
	}

	c.AddDomainEvent(NewIntegrationCalledEvent(c, result))
	return result, nil
}

// SettleContinuousFees runs the continuous fee hook outside any other
// fund action, letting rate-based fees accrue on demand
func (c *Controller) SettleContinuousFees(_ context.Context) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	vaultSnap := c.vault.TakeSnapshot()
	feeSnap := c.fees.TakeSnapshot()
	outcomes, err := c.fees.InvokeHook(extension.HookContinuous, extension.FeeInput{
		Hook: extension.HookContinuous,
		Now:  c.clock.Now(),
		Fund: c,
	}, c)
	if err != nil {
		c.vault.Restore(vaultSnap)
		c.fees.Restore(feeSnap)
		return err
	}
	c.recordFeeOutcomes(extension.HookContinuous, outcomes)
	return nil
}

// PreTransferSharesHook is invoked by the vault before every share
// transfer. It enforces the shares-action timelock on the sender and
// runs the pre-transfer policies.
func (c *Controller) PreTransferSharesHook(from, to uuid.UUID, amount decimal.Decimal) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	if last, ok := c.lastSharesAction[from]; ok && c.sharesActionTimelock > 0 {
		if c.clock.Now().Before(last.Add(c.sharesActionTimelock)) {
			return shared.ErrTimelockNotElapsed
		}
	}
	if err := c.policies.Validate(extension.HookPreTransferShares, extension.PolicyInput{
		FundID: c.FundID(),
		From:   from,
		To:     to,
		Amount: amount,
	}); err != nil {
		c.recordPolicyViolation(extension.HookPreTransferShares, err)
		return err
	}
	return nil
}

// InvokeMigrationOutHook lets the coordinator run the outgoing
// controller's validation at each migration phase
func (c *Controller) InvokeMigrationOutHook(caller uuid.UUID, phase MigrationPhase) error {
	if caller != c.coordinatorID {
		return shared.ErrUnauthorized
	}
	if c.state == StateDestructed {
		return shared.ErrFundDestructed
	}
	c.AddDomainEvent(NewMigrationHookInvokedEvent(c, phase, true))
	return nil
}

// InvokeMigrationInCancelHook lets the coordinator run the incoming
// controller's hook on migration execution or cancellation
func (c *Controller) InvokeMigrationInCancelHook(caller uuid.UUID, phase MigrationPhase) error {
	if caller != c.coordinatorID {
		return shared.ErrUnauthorized
	}
	if c.state == StateDestructed {
		return shared.ErrFundDestructed
	}
	c.AddDomainEvent(NewMigrationHookInvokedEvent(c, phase, false))
	return nil
}

// Destruct irreversibly disables the controller. Callable only by the
// migration coordinator as the final step of an executed migration or
// an explicit shutdown; the vault keeps operating under the new
// accessor.
func (c *Controller) Destruct(caller uuid.UUID) error {
	if caller != c.coordinatorID {
		return shared.ErrUnauthorized
	}
	if c.state == StateDestructed {
		return shared.ErrFundDestructed
	}
	c.state = StateDestructed
	c.AddDomainEvent(NewControllerDestructedEvent(c))
	c.logger.Info("fund controller destructed",
		zap.String("fund_id", c.FundID().String()),
		zap.String("controller_id", c.ID.String()),
	)
	return nil
}

// LastSharesAction returns when the holder last bought or redeemed
func (c *Controller) LastSharesAction(holder uuid.UUID) (time.Time, bool) {
	t, ok := c.lastSharesAction[holder]
	return t, ok
}

func (c *Controller) recordFeeOutcomes(hook extension.Hook, outcomes []extension.FeeOutcome) {
	for _, o := range outcomes {
		c.AddDomainEvent(NewFeeSettledEvent(c, hook, o))
	}
}

func (c *Controller) recordPolicyViolation(hook extension.Hook, err error) {
	if violation, ok := err.(*extension.PolicyViolationError); ok {
		c.AddDomainEvent(NewPolicyViolatedEvent(c, hook, violation.Module, violation.Reason))
	}
}

var (
	_ asset.Accessor     = (*Controller)(nil)
	_ extension.FundView = (*Controller)(nil)
	_ extension.Settler  = (*Controller)(nil)
)
