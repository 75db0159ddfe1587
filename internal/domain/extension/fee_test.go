package extension

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFund is a minimal in-memory fund economy for exercising fee
// modules without the full controller.
type fakeFund struct {
	id     uuid.UUID
	owner  uuid.UUID
	supply decimal.Decimal
	gav    decimal.Decimal
	gavErr error

	balances map[uuid.UUID]decimal.Decimal
	payouts  []decimal.Decimal
}

func newFakeFund() *fakeFund {
	return &fakeFund{
		id:       uuid.New(),
		owner:    uuid.New(),
		supply:   decimal.Zero,
		gav:      decimal.Zero,
		balances: make(map[uuid.UUID]decimal.Decimal),
	}
}

func (f *fakeFund) FundID() uuid.UUID            { return f.id }
func (f *fakeFund) FundOwner() uuid.UUID         { return f.owner }
func (f *fakeFund) TotalSupply() decimal.Decimal { return f.supply }

func (f *fakeFund) BalanceOf(holder uuid.UUID) decimal.Decimal {
	if b, ok := f.balances[holder]; ok {
		return b
	}
	return decimal.Zero
}

func (f *fakeFund) GrossAssetValue() (decimal.Decimal, error) {
	if f.gavErr != nil {
		return decimal.Zero, f.gavErr
	}
	return f.gav, nil
}

func (f *fakeFund) SharePrice() (decimal.Decimal, error) {
	if f.gavErr != nil {
		return decimal.Zero, f.gavErr
	}
	if !f.supply.IsPositive() {
		return decimal.NewFromInt(1), nil
	}
	return f.gav.Div(f.supply), nil
}

func (f *fakeFund) MintSharesTo(to uuid.UUID, amount decimal.Decimal) error {
	f.balances[to] = f.BalanceOf(to).Add(amount)
	f.supply = f.supply.Add(amount)
	return nil
}

func (f *fakeFund) BurnSharesFrom(from uuid.UUID, amount decimal.Decimal) error {
	f.balances[from] = f.BalanceOf(from).Sub(amount)
	f.supply = f.supply.Sub(amount)
	return nil
}

func (f *fakeFund) PayoutDenomination(_ uuid.UUID, amount decimal.Decimal) error {
	f.payouts = append(f.payouts, amount)
	f.gav = f.gav.Sub(amount)
	return nil
}

var (
	_ FundView = (*fakeFund)(nil)
	_ Settler  = (*fakeFund)(nil)
)

func TestFeeRegistryRegister(t *testing.T) {
	t.Run("rejects duplicate module IDs", func(t *testing.T) {
		r := NewFeeRegistry(nil)
		fee, err := NewEntranceFee(decimal.NewFromFloat(0.01), uuid.New(), false)
		require.NoError(t, err)

		require.NoError(t, r.Register(fee))
		err = r.Register(fee)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("rejects nil module", func(t *testing.T) {
		r := NewFeeRegistry(nil)
		err := r.Register(nil)
		require.Error(t, err)
	})

	t.Run("returns module IDs in registration order", func(t *testing.T) {
		r := NewFeeRegistry(nil)
		entrance, _ := NewEntranceFee(decimal.NewFromFloat(0.01), uuid.New(), false)
		mgmt, _ := NewManagementFee(decimal.NewFromFloat(0.02), uuid.New())
		require.NoError(t, r.Register(entrance))
		require.NoError(t, r.Register(mgmt))

		assert.Equal(t, []string{"entrance-fee", "management-fee"}, r.ModuleIDs())
	})
}

func TestEntranceFee(t *testing.T) {
	t.Run("validates rate bounds", func(t *testing.T) {
		_, err := NewEntranceFee(decimal.NewFromInt(1), uuid.New(), false)
		require.Error(t, err)
		_, err = NewEntranceFee(decimal.NewFromFloat(-0.1), uuid.New(), false)
		require.Error(t, err)
	})

	t.Run("requires recipient unless burning", func(t *testing.T) {
		_, err := NewEntranceFee(decimal.NewFromFloat(0.01), uuid.Nil, false)
		require.Error(t, err)
		_, err = NewEntranceFee(decimal.NewFromFloat(0.01), uuid.Nil, true)
		require.NoError(t, err)
	})

	t.Run("mint variant dilutes holders toward the recipient", func(t *testing.T) {
		fund := newFakeFund()
		buyer := uuid.New()
		recipient := uuid.New()
		require.NoError(t, fund.MintSharesTo(buyer, decimal.NewFromInt(100)))
		fund.gav = decimal.NewFromInt(100)

		r := NewFeeRegistry(nil)
		fee, err := NewEntranceFee(decimal.NewFromFloat(0.05), recipient, false)
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		outcomes, err := r.InvokeHook(HookPostBuyShares, FeeInput{
			Hook:         HookPostBuyShares,
			Now:          time.Now(),
			Fund:         fund,
			Buyer:        buyer,
			SharesBought: decimal.NewFromInt(100),
		}, fund)
		require.NoError(t, err)
		require.Len(t, outcomes, 1)

		assert.Equal(t, "entrance-fee", outcomes[0].Module)
		assert.Equal(t, SettlementMint, outcomes[0].Settlement)
		assert.True(t, fund.BalanceOf(recipient).Equal(decimal.NewFromInt(5)))
		assert.True(t, fund.supply.Equal(decimal.NewFromInt(105)))
	})

	t.Run("burn variant charges the buyer directly", func(t *testing.T) {
		fund := newFakeFund()
		buyer := uuid.New()
		require.NoError(t, fund.MintSharesTo(buyer, decimal.NewFromInt(100)))

		r := NewFeeRegistry(nil)
		fee, err := NewEntranceFee(decimal.NewFromFloat(0.05), uuid.Nil, true)
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		outcomes, err := r.InvokeHook(HookPostBuyShares, FeeInput{
			Hook:         HookPostBuyShares,
			Now:          time.Now(),
			Fund:         fund,
			Buyer:        buyer,
			SharesBought: decimal.NewFromInt(100),
		}, fund)
		require.NoError(t, err)
		require.Len(t, outcomes, 1)

		assert.Equal(t, SettlementBurn, outcomes[0].Settlement)
		assert.True(t, fund.BalanceOf(buyer).Equal(decimal.NewFromInt(95)))
		assert.True(t, fund.supply.Equal(decimal.NewFromInt(95)))
	})

	t.Run("does not settle outside its hook", func(t *testing.T) {
		fund := newFakeFund()
		r := NewFeeRegistry(nil)
		fee, _ := NewEntranceFee(decimal.NewFromFloat(0.05), uuid.New(), false)
		require.NoError(t, r.Register(fee))

		outcomes, err := r.InvokeHook(HookContinuous, FeeInput{
			Hook: HookContinuous, Now: time.Now(), Fund: fund,
		}, fund)
		require.NoError(t, err)
		assert.Empty(t, outcomes)
	})
}

func TestManagementFee(t *testing.T) {
	recipient := uuid.New()

	t.Run("first settlement only opens the accrual window", func(t *testing.T) {
		fund := newFakeFund()
		require.NoError(t, fund.MintSharesTo(uuid.New(), decimal.NewFromInt(1000)))

		r := NewFeeRegistry(nil)
		fee, err := NewManagementFee(decimal.NewFromFloat(0.02), recipient)
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		outcomes, err := r.InvokeHook(HookContinuous, FeeInput{
			Hook: HookContinuous, Now: time.Now(), Fund: fund,
		}, fund)
		require.NoError(t, err)
		assert.Empty(t, outcomes)

		state, ok := r.State("management-fee")
		require.True(t, ok)
		assert.False(t, state.LastSettled.IsZero())
	})

	t.Run("accrues pro rata over elapsed time", func(t *testing.T) {
		fund := newFakeFund()
		require.NoError(t, fund.MintSharesTo(uuid.New(), decimal.NewFromInt(1000)))

		r := NewFeeRegistry(nil)
		fee, err := NewManagementFee(decimal.NewFromFloat(0.02), recipient)
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err = r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: start, Fund: fund}, fund)
		require.NoError(t, err)

		// half a year at 2% on 1000 shares -> 10 shares
		halfYear := start.Add(time.Duration(secondsPerYear/2) * time.Second)
		outcomes, err := r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: halfYear, Fund: fund}, fund)
		require.NoError(t, err)
		require.Len(t, outcomes, 1)

		assert.True(t, outcomes[0].SharesDue.Equal(decimal.NewFromInt(10)),
			"got %s", outcomes[0].SharesDue)
		assert.True(t, fund.BalanceOf(recipient).Equal(decimal.NewFromInt(10)))
	})

	t.Run("owes nothing with zero supply", func(t *testing.T) {
		fund := newFakeFund()
		r := NewFeeRegistry(nil)
		fee, err := NewManagementFee(decimal.NewFromFloat(0.02), recipient)
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		start := time.Now()
		_, err = r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: start, Fund: fund}, fund)
		require.NoError(t, err)

		outcomes, err := r.InvokeHook(HookContinuous, FeeInput{
			Hook: HookContinuous, Now: start.Add(time.Hour), Fund: fund,
		}, fund)
		require.NoError(t, err)
		assert.Empty(t, outcomes)
	})
}

func TestPerformanceFee(t *testing.T) {
	recipient := uuid.New()

	t.Run("first settlement initializes the high-water mark", func(t *testing.T) {
		fund := newFakeFund()
		require.NoError(t, fund.MintSharesTo(uuid.New(), decimal.NewFromInt(100)))
		fund.gav = decimal.NewFromInt(100)

		r := NewFeeRegistry(nil)
		fee, err := NewPerformanceFee(decimal.NewFromFloat(0.2), recipient)
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		outcomes, err := r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: time.Now(), Fund: fund}, fund)
		require.NoError(t, err)
		assert.Empty(t, outcomes)

		state, ok := r.State("performance-fee")
		require.True(t, ok)
		assert.True(t, state.HighWaterMark.Equal(decimal.NewFromInt(1)))
	})

	t.Run("charges on gains above the mark and ratchets it", func(t *testing.T) {
		fund := newFakeFund()
		require.NoError(t, fund.MintSharesTo(uuid.New(), decimal.NewFromInt(100)))
		fund.gav = decimal.NewFromInt(100)

		r := NewFeeRegistry(nil)
		fee, err := NewPerformanceFee(decimal.NewFromFloat(0.2), recipient)
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		_, err = r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: time.Now(), Fund: fund}, fund)
		require.NoError(t, err)

		// price doubles: gained value 100, fee 20, 10 shares at price 2
		fund.gav = decimal.NewFromInt(200)
		outcomes, err := r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: time.Now(), Fund: fund}, fund)
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.True(t, outcomes[0].SharesDue.Equal(decimal.NewFromInt(10)),
			"got %s", outcomes[0].SharesDue)

		state, _ := r.State("performance-fee")
		assert.True(t, state.HighWaterMark.Equal(decimal.NewFromInt(2)))
	})

	t.Run("never charges below the mark", func(t *testing.T) {
		fund := newFakeFund()
		require.NoError(t, fund.MintSharesTo(uuid.New(), decimal.NewFromInt(100)))
		fund.gav = decimal.NewFromInt(200)

		r := NewFeeRegistry(nil)
		fee, err := NewPerformanceFee(decimal.NewFromFloat(0.2), recipient)
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		_, err = r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: time.Now(), Fund: fund}, fund)
		require.NoError(t, err)

		fund.gav = decimal.NewFromInt(150)
		outcomes, err := r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: time.Now(), Fund: fund}, fund)
		require.NoError(t, err)
		assert.Empty(t, outcomes)
	})

	t.Run("post-buy update raises the mark without settling", func(t *testing.T) {
		fund := newFakeFund()
		require.NoError(t, fund.MintSharesTo(uuid.New(), decimal.NewFromInt(100)))
		fund.gav = decimal.NewFromInt(300)

		r := NewFeeRegistry(nil)
		fee, err := NewPerformanceFee(decimal.NewFromFloat(0.2), recipient)
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		outcomes, err := r.InvokeHook(HookPostBuyShares, FeeInput{Hook: HookPostBuyShares, Now: time.Now(), Fund: fund}, fund)
		require.NoError(t, err)
		assert.Empty(t, outcomes)

		state, _ := r.State("performance-fee")
		assert.True(t, state.HighWaterMark.Equal(decimal.NewFromInt(3)))
		assert.True(t, fund.BalanceOf(recipient).IsZero())
	})
}

type negativeFee struct{}

func (negativeFee) ID() string              { return "negative-fee" }
func (negativeFee) SettlesOnHook(Hook) bool { return true }
func (negativeFee) UpdatesOnHook(Hook) bool { return false }
func (negativeFee) Update(FeeInput) error   { return nil }
func (negativeFee) Settle(FeeInput) (FeeSettlement, error) {
	return FeeSettlement{SharesDue: decimal.NewFromInt(-1), Settlement: SettlementBurn, Payer: uuid.New()}, nil
}

type directFee struct {
	recipient uuid.UUID
}

func (directFee) ID() string              { return "direct-fee" }
func (directFee) SettlesOnHook(Hook) bool { return true }
func (directFee) UpdatesOnHook(Hook) bool { return false }
func (directFee) Update(FeeInput) error   { return nil }
func (f directFee) Settle(FeeInput) (FeeSettlement, error) {
	return FeeSettlement{SharesDue: decimal.NewFromInt(10), Settlement: SettlementDirect, Recipient: f.recipient}, nil
}

func TestFeeRegistryInvokeHook(t *testing.T) {
	t.Run("rejects negative shares due", func(t *testing.T) {
		fund := newFakeFund()
		r := NewFeeRegistry(nil)
		require.NoError(t, r.Register(negativeFee{}))

		_, err := r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: time.Now(), Fund: fund}, fund)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative shares due")
	})

	t.Run("earlier settlement is visible to later modules", func(t *testing.T) {
		fund := newFakeFund()
		holder := uuid.New()
		require.NoError(t, fund.MintSharesTo(holder, decimal.NewFromInt(1000)))

		mgmtRecipient := uuid.New()
		r := NewFeeRegistry(nil)
		mgmt, err := NewManagementFee(decimal.NewFromFloat(0.5), mgmtRecipient)
		require.NoError(t, err)
		require.NoError(t, r.Register(mgmt))

		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err = r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: start, Fund: fund}, fund)
		require.NoError(t, err)

		year := start.Add(time.Duration(secondsPerYear) * time.Second)
		outcomes, err := r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: year, Fund: fund}, fund)
		require.NoError(t, err)
		require.Len(t, outcomes, 1)

		// the registry applied the mint before returning
		assert.True(t, fund.supply.Equal(decimal.NewFromInt(1500)))
	})

	t.Run("direct settlement pays out denomination at the share price", func(t *testing.T) {
		fund := newFakeFund()
		require.NoError(t, fund.MintSharesTo(uuid.New(), decimal.NewFromInt(100)))
		fund.gav = decimal.NewFromInt(200) // share price 2

		r := NewFeeRegistry(nil)
		require.NoError(t, r.Register(directFee{recipient: uuid.New()}))

		_, err := r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: time.Now(), Fund: fund}, fund)
		require.NoError(t, err)

		require.Len(t, fund.payouts, 1)
		assert.True(t, fund.payouts[0].Equal(decimal.NewFromInt(20)))
		// supply is untouched, value left the fund instead
		assert.True(t, fund.supply.Equal(decimal.NewFromInt(100)))
	})
}

func TestFeeRegistrySnapshot(t *testing.T) {
	t.Run("restore rolls module state back", func(t *testing.T) {
		fund := newFakeFund()
		require.NoError(t, fund.MintSharesTo(uuid.New(), decimal.NewFromInt(100)))

		r := NewFeeRegistry(nil)
		fee, err := NewManagementFee(decimal.NewFromFloat(0.02), uuid.New())
		require.NoError(t, err)
		require.NoError(t, r.Register(fee))

		snap := r.TakeSnapshot()

		_, err = r.InvokeHook(HookContinuous, FeeInput{Hook: HookContinuous, Now: time.Now(), Fund: fund}, fund)
		require.NoError(t, err)
		state, _ := r.State("management-fee")
		require.False(t, state.LastSettled.IsZero())

		r.Restore(snap)
		state, _ = r.State("management-fee")
		assert.True(t, state.LastSettled.IsZero())
	})
}
