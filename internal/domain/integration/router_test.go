package integration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/asset"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdc = valueobject.AssetID("USDC")
	weth = valueobject.AssetID("WETH")
)

// swapInstruction is the fake adapter's packed payload: swap spend of
// the "in" asset for the "out" asset at a fixed amount.
type swapInstruction struct {
	SpendAsset    valueobject.AssetID `json:"spend_asset"`
	SpendAmount   string              `json:"spend_amount"`
	ReceiveAsset  valueobject.AssetID `json:"receive_asset"`
	ReceiveAmount string              `json:"receive_amount"`
}

// fakeSwapAdapter declares a faithful spec and executes it, unless one
// of the misbehavior knobs is set.
type fakeSwapAdapter struct {
	overspend    bool
	underDeliver bool
	skipSpend    bool
}

func (a *fakeSwapAdapter) ID() string { return "fake-swap" }

func (a *fakeSwapAdapter) ParseCall(method string, payload []byte) (CallSpec, error) {
	var in swapInstruction
	if err := json.Unmarshal(payload, &in); err != nil {
		return CallSpec{}, err
	}
	spend, err := valueobject.NewAssetAmountFromString(in.SpendAsset, in.SpendAmount)
	if err != nil {
		return CallSpec{}, err
	}
	receive, err := valueobject.NewAssetAmountFromString(in.ReceiveAsset, in.ReceiveAmount)
	if err != nil {
		return CallSpec{}, err
	}
	return CallSpec{
		SpendAssets:    []valueobject.AssetAmount{spend},
		IncomingAssets: []valueobject.AssetAmount{receive},
	}, nil
}

func (a *fakeSwapAdapter) Execute(_ context.Context, custody CustodyAccess, _ string, payload []byte) error {
	var in swapInstruction
	if err := json.Unmarshal(payload, &in); err != nil {
		return err
	}
	spendAmount, _ := decimal.NewFromString(in.SpendAmount)
	receiveAmount, _ := decimal.NewFromString(in.ReceiveAmount)

	if a.overspend {
		spendAmount = spendAmount.Mul(decimal.NewFromInt(2))
	}
	if !a.skipSpend {
		if err := custody.Spend(in.SpendAsset, spendAmount); err != nil {
			return err
		}
	}
	if a.underDeliver {
		receiveAmount = receiveAmount.Div(decimal.NewFromInt(2))
	}
	return custody.Deposit(in.ReceiveAsset, receiveAmount)
}

type routerAccessor struct{ id uuid.UUID }

func (a *routerAccessor) AccessorID() uuid.UUID { return a.id }
func (a *routerAccessor) PreTransferSharesHook(uuid.UUID, uuid.UUID, decimal.Decimal) error {
	return nil
}

func newRouterVault(t *testing.T) (*asset.Vault, uuid.UUID) {
	t.Helper()
	coordinatorID := uuid.New()
	v, err := asset.NewVault(uuid.New(), "Alpha Fund", "ALPHA", usdc, coordinatorID, uuid.New())
	require.NoError(t, err)

	accessor := &routerAccessor{id: uuid.New()}
	require.NoError(t, v.SetAccessor(coordinatorID, accessor))
	require.NoError(t, v.DepositAsset(usdc, decimal.NewFromInt(10_000)))
	return v, accessor.id
}

func swapPayload(t *testing.T, spendAmount, receiveAmount string) []byte {
	t.Helper()
	payload, err := json.Marshal(swapInstruction{
		SpendAsset:    usdc,
		SpendAmount:   spendAmount,
		ReceiveAsset:  weth,
		ReceiveAmount: receiveAmount,
	})
	require.NoError(t, err)
	return payload
}

func TestRouterRegisterAdapter(t *testing.T) {
	t.Run("rejects duplicate adapters", func(t *testing.T) {
		r := NewRouter(nil)
		require.NoError(t, r.RegisterAdapter(&fakeSwapAdapter{}))
		err := r.RegisterAdapter(&fakeSwapAdapter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("rejects nil adapter", func(t *testing.T) {
		r := NewRouter(nil)
		require.Error(t, r.RegisterAdapter(nil))
	})
}

func TestRouterCallOnIntegration(t *testing.T) {
	ctx := context.Background()

	t.Run("faithful adapter passes and reports deltas", func(t *testing.T) {
		v, accessorID := newRouterVault(t)
		r := NewRouter(nil)
		require.NoError(t, r.RegisterAdapter(&fakeSwapAdapter{}))

		result, err := r.CallOnIntegration(ctx, v, accessorID, "fake-swap", "swap", swapPayload(t, "2000", "1"))
		require.NoError(t, err)

		assert.Equal(t, "fake-swap", result.Adapter)
		require.Len(t, result.SpendDeltas, 1)
		require.Len(t, result.IncomingDeltas, 1)
		assert.True(t, result.SpendDeltas[0].Amount().Equal(decimal.NewFromInt(2000)))
		assert.True(t, result.IncomingDeltas[0].Amount().Equal(decimal.NewFromInt(1)))

		assert.True(t, v.AssetBalance(usdc).Equal(decimal.NewFromInt(8000)))
		assert.True(t, v.AssetBalance(weth).Equal(decimal.NewFromInt(1)))
	})

	t.Run("incoming asset joins the tracked set", func(t *testing.T) {
		v, accessorID := newRouterVault(t)
		r := NewRouter(nil)
		require.NoError(t, r.RegisterAdapter(&fakeSwapAdapter{}))

		_, err := r.CallOnIntegration(ctx, v, accessorID, "fake-swap", "swap", swapPayload(t, "2000", "1"))
		require.NoError(t, err)
		assert.True(t, v.IsTrackedAsset(weth))
	})

	t.Run("overspending adapter is stopped by the custody session", func(t *testing.T) {
		v, accessorID := newRouterVault(t)
		r := NewRouter(nil)
		require.NoError(t, r.RegisterAdapter(&fakeSwapAdapter{overspend: true}))

		_, err := r.CallOnIntegration(ctx, v, accessorID, "fake-swap", "swap", swapPayload(t, "2000", "1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "may not spend")
	})

	t.Run("under-delivering adapter fails the accounting check", func(t *testing.T) {
		v, accessorID := newRouterVault(t)
		r := NewRouter(nil)
		require.NoError(t, r.RegisterAdapter(&fakeSwapAdapter{underDeliver: true}))

		_, err := r.CallOnIntegration(ctx, v, accessorID, "fake-swap", "swap", swapPayload(t, "2000", "1"))
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACCOUNTING_MISMATCH", domainErr.Code)
	})

	t.Run("spending less than declared is allowed", func(t *testing.T) {
		v, accessorID := newRouterVault(t)
		r := NewRouter(nil)
		require.NoError(t, r.RegisterAdapter(&fakeSwapAdapter{skipSpend: true}))

		result, err := r.CallOnIntegration(ctx, v, accessorID, "fake-swap", "swap", swapPayload(t, "2000", "1"))
		require.NoError(t, err)
		assert.Empty(t, result.SpendDeltas)
		assert.True(t, v.AssetBalance(usdc).Equal(decimal.NewFromInt(10_000)))
	})

	t.Run("unregistered adapter is rejected", func(t *testing.T) {
		v, accessorID := newRouterVault(t)
		r := NewRouter(nil)

		_, err := r.CallOnIntegration(ctx, v, accessorID, "missing", "swap", swapPayload(t, "1", "1"))
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNREGISTERED_ADAPTER", domainErr.Code)
	})

	t.Run("malformed payload is rejected before execution", func(t *testing.T) {
		v, accessorID := newRouterVault(t)
		r := NewRouter(nil)
		require.NoError(t, r.RegisterAdapter(&fakeSwapAdapter{}))

		_, err := r.CallOnIntegration(ctx, v, accessorID, "fake-swap", "swap", []byte("{not json"))
		require.Error(t, err)
		assert.True(t, v.AssetBalance(usdc).Equal(decimal.NewFromInt(10_000)))
	})
}

func TestCallSpecValidate(t *testing.T) {
	t.Run("rejects duplicate spend assets", func(t *testing.T) {
		spec := CallSpec{
			SpendAssets: []valueobject.AssetAmount{
				valueobject.MustAssetAmount(usdc, decimal.NewFromInt(1)),
				valueobject.MustAssetAmount(usdc, decimal.NewFromInt(2)),
			},
		}
		require.Error(t, spec.Validate())
	})

	t.Run("rejects negative declared amounts", func(t *testing.T) {
		spec := CallSpec{
			IncomingAssets: []valueobject.AssetAmount{
				valueobject.MustAssetAmount(weth, decimal.NewFromInt(-1)),
			},
		}
		require.Error(t, spec.Validate())
	})
}
