package integration

import (
	"context"

	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CustodyAccess is the restricted custody view an adapter executes
// against. Spends are bounded to the amounts the adapter declared when
// its call was parsed.
type CustodyAccess interface {
	// Spend debits the vault within the granted allowance
	Spend(asset valueobject.AssetID, amount decimal.Decimal) error
	// Deposit credits the vault with an incoming asset
	Deposit(asset valueobject.AssetID, amount decimal.Decimal) error
}

// CallSpec is an adapter's declared accounting contract for one call:
// the assets it will spend (maximums) and the assets it expects to
// bring in (minimums).
type CallSpec struct {
	SpendAssets    []valueobject.AssetAmount
	IncomingAssets []valueobject.AssetAmount
}

// Validate checks the declared spec for duplicates and negative amounts
func (s CallSpec) Validate() error {
	seen := make(map[valueobject.AssetID]struct{})
	for _, aa := range s.SpendAssets {
		if aa.Amount().IsNegative() {
			return shared.NewDomainError("INVALID_CALL_SPEC", "Declared spend amount cannot be negative")
		}
		if _, dup := seen[aa.Asset()]; dup {
			return shared.NewDomainError("INVALID_CALL_SPEC", "Duplicate declared spend asset")
		}
		seen[aa.Asset()] = struct{}{}
	}
	seen = make(map[valueobject.AssetID]struct{})
	for _, aa := range s.IncomingAssets {
		if aa.Amount().IsNegative() {
			return shared.NewDomainError("INVALID_CALL_SPEC", "Declared incoming amount cannot be negative")
		}
		if _, dup := seen[aa.Asset()]; dup {
			return shared.NewDomainError("INVALID_CALL_SPEC", "Duplicate declared incoming asset")
		}
		seen[aa.Asset()] = struct{}{}
	}
	return nil
}

// Adapter translates the router's standard spend/receive protocol into
// one external protocol's call interface. ParseCall is pure; Execute
// performs the actual external-protocol action and may re-enter other
// components, which is why the router only trusts balance deltas
// observed after it returns.
type Adapter interface {
	// ID returns the adapter's unique identifier
	ID() string
	// ParseCall derives the declared accounting contract from a packed
	// instruction without side effects
	ParseCall(method string, payload []byte) (CallSpec, error)
	// Execute performs the external-protocol action against the
	// restricted custody view
	Execute(ctx context.Context, custody CustodyAccess, method string, payload []byte) error
}
