package integration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/asset"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Result reports the actual balance deltas of an executed integration
// call, as observed by the router after the adapter returned
type Result struct {
	Adapter        string
	Method         string
	SpendDeltas    []valueobject.AssetAmount
	IncomingDeltas []valueobject.AssetAmount
}

// Router validates and forwards adapter calls, enforcing the declared
// spend/receive accounting against actual vault balance deltas. State
// is only inspected after the external call returns, which is the
// primary defense against reentrant or misbehaving adapters.
type Router struct {
	logger   *zap.Logger
	adapters map[string]Adapter
}

// NewRouter creates a router with no adapters registered
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger:   logger,
		adapters: make(map[string]Adapter),
	}
}

// RegisterAdapter adds a vetted adapter to the router
func (r *Router) RegisterAdapter(a Adapter) error {
	if a == nil || a.ID() == "" {
		return shared.NewDomainError("INVALID_ADAPTER", "Adapter must have an identifier")
	}
	if _, exists := r.adapters[a.ID()]; exists {
		return shared.NewDomainError("ALREADY_REGISTERED", fmt.Sprintf("Adapter %s is already registered", a.ID()))
	}
	r.adapters[a.ID()] = a
	return nil
}

// AdapterIDs returns the registered adapter identifiers
func (r *Router) AdapterIDs() []string {
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}

// CallOnIntegration executes one adapter call against the vault with
// the accessor's authority. The caller (fund controller) is
// responsible for rolling the vault back when an error is returned.
func (r *Router) CallOnIntegration(
	ctx context.Context,
	vault *asset.Vault,
	accessorID uuid.UUID,
	adapterID string,
	method string,
	payload []byte,
) (Result, error) {
	adapter, ok := r.adapters[adapterID]
	if !ok {
		return Result{}, shared.NewDomainError("UNREGISTERED_ADAPTER", fmt.Sprintf("Adapter %q is not registered", adapterID))
	}

	spec, err := adapter.ParseCall(method, payload)
	if err != nil {
		return Result{}, shared.NewDomainError("INVALID_CALL_SPEC", fmt.Sprintf("Adapter rejected the instruction: %v", err))
	}
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}

	// Balances of every declared asset before the external call.
	pre := make(map[valueobject.AssetID]decimal.Decimal)
	for _, aa := range spec.SpendAssets {
		pre[aa.Asset()] = vault.AssetBalance(aa.Asset())
	}
	for _, aa := range spec.IncomingAssets {
		if _, seen := pre[aa.Asset()]; !seen {
			pre[aa.Asset()] = vault.AssetBalance(aa.Asset())
		}
	}

	session := newCustodySession(vault, accessorID, adapterID, spec.SpendAssets)
	if err := adapter.Execute(ctx, session, method, payload); err != nil {
		return Result{}, shared.NewDomainError("ADAPTER_EXECUTION_FAILED", fmt.Sprintf("Adapter %s failed: %v", adapterID, err))
	}

	// Re-read balances after the call; nothing before it is trusted.
	result := Result{Adapter: adapterID, Method: method}
	for _, aa := range spec.SpendAssets {
		post := vault.AssetBalance(aa.Asset())
		delta := pre[aa.Asset()].Sub(post)
		if delta.GreaterThan(aa.Amount()) {
			return Result{}, shared.NewDomainError("ACCOUNTING_MISMATCH",
				fmt.Sprintf("Adapter %s spent %s of %s, declared at most %s", adapterID, delta, aa.Asset(), aa.Amount()))
		}
		if delta.IsPositive() {
			result.SpendDeltas = append(result.SpendDeltas, valueobject.MustAssetAmount(aa.Asset(), delta))
		}
	}
	for _, aa := range spec.IncomingAssets {
		post := vault.AssetBalance(aa.Asset())
		delta := post.Sub(pre[aa.Asset()])
		if delta.LessThan(aa.Amount()) {
			return Result{}, shared.NewDomainError("ACCOUNTING_MISMATCH",
				fmt.Sprintf("Adapter %s returned %s of %s, declared at least %s", adapterID, delta, aa.Asset(), aa.Amount()))
		}
		if delta.IsPositive() {
			result.IncomingDeltas = append(result.IncomingDeltas, valueobject.MustAssetAmount(aa.Asset(), delta))
		}
	}

	// Tracked-asset maintenance: newly held incoming assets join the
	// set, fully spent assets leave it.
	for _, aa := range spec.IncomingAssets {
		if vault.AssetBalance(aa.Asset()).IsPositive() {
			if err := vault.AddTrackedAsset(accessorID, aa.Asset()); err != nil {
				return Result{}, err
			}
		}
	}
	for _, aa := range spec.SpendAssets {
		if aa.Asset() == vault.DenominationAsset {
			continue
		}
		if vault.AssetBalance(aa.Asset()).IsZero() {
			if err := vault.RemoveTrackedAsset(accessorID, aa.Asset()); err != nil {
				return Result{}, err
			}
		}
	}

	r.logger.Info("integration call executed",
		zap.String("fund_id", vault.ID.String()),
		zap.String("adapter", adapterID),
		zap.String("method", method),
		zap.Int("spend_assets", len(result.SpendDeltas)),
		zap.Int("incoming_assets", len(result.IncomingDeltas)),
	)
	return result, nil
}

// custodySession caps an adapter's spending to its declared amounts
type custodySession struct {
	vault      *asset.Vault
	accessorID uuid.UUID
	adapterID  string
	remaining  map[valueobject.AssetID]decimal.Decimal
}

func newCustodySession(vault *asset.Vault, accessorID uuid.UUID, adapterID string, spends []valueobject.AssetAmount) *custodySession {
	remaining := make(map[valueobject.AssetID]decimal.Decimal, len(spends))
	for _, aa := range spends {
		remaining[aa.Asset()] = aa.Amount()
	}
	return &custodySession{
		vault:      vault,
		accessorID: accessorID,
		adapterID:  adapterID,
		remaining:  remaining,
	}
}

// Spend debits the vault within the declared allowance
func (s *custodySession) Spend(a valueobject.AssetID, amount decimal.Decimal) error {
	allowance, ok := s.remaining[a]
	if !ok || allowance.LessThan(amount) {
		return shared.NewDomainError("SPEND_EXCEEDS_ALLOWANCE",
			fmt.Sprintf("Adapter %s may not spend %s of %s", s.adapterID, amount, a))
	}
	if err := s.vault.WithdrawAssetTo(s.accessorID, a, amount, "adapter:"+s.adapterID); err != nil {
		return err
	}
	s.remaining[a] = allowance.Sub(amount)
	return nil
}

// Deposit credits the vault with an incoming asset
func (s *custodySession) Deposit(a valueobject.AssetID, amount decimal.Decimal) error {
	return s.vault.DepositAsset(a, amount)
}

var _ CustodyAccess = (*custodySession)(nil)
