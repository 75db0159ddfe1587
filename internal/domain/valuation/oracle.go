package valuation

import (
	"fmt"
	"sync"

	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ErrInvalidValuation is returned when an asset's canonical value is
// currently unavailable or unreliable
var ErrInvalidValuation = shared.NewDomainError("INVALID_VALUATION", "Asset valuation is currently invalid")

// Oracle is the valuation collaborator: given an asset and amount, it
// returns the value in a quote asset, or signals that the valuation is
// invalid. Price aggregation itself is outside this core.
type Oracle interface {
	// ValueOf converts an amount of the base asset into the quote
	// asset. Returns ErrInvalidValuation when no reliable rate exists.
	ValueOf(base valueobject.AssetID, amount decimal.Decimal, quote valueobject.AssetID) (decimal.Decimal, error)
}

type ratePair struct {
	base  valueobject.AssetID
	quote valueobject.AssetID
}

// FixedRateOracle is an in-memory oracle with explicitly set rates.
// It backs tests and the development server; production deployments
// plug in a real price aggregation service.
type FixedRateOracle struct {
	mu    sync.RWMutex
	rates map[ratePair]decimal.Decimal
}

// NewFixedRateOracle creates an empty fixed-rate oracle
func NewFixedRateOracle() *FixedRateOracle {
	return &FixedRateOracle{rates: make(map[ratePair]decimal.Decimal)}
}

// SetRate sets the rate for one unit of base expressed in quote
func (o *FixedRateOracle) SetRate(base, quote valueobject.AssetID, rate decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rates[ratePair{base, quote}] = rate
}

// Invalidate removes the rate for a pair, making valuations of it fail
func (o *FixedRateOracle) Invalidate(base, quote valueobject.AssetID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.rates, ratePair{base, quote})
}

// ValueOf converts amount of base into quote. An asset always values
// 1:1 against itself.
func (o *FixedRateOracle) ValueOf(base valueobject.AssetID, amount decimal.Decimal, quote valueobject.AssetID) (decimal.Decimal, error) {
	if base == quote {
		return amount, nil
	}
	o.mu.RLock()
	rate, ok := o.rates[ratePair{base, quote}]
	o.mu.RUnlock()
	if !ok {
		return decimal.Zero, shared.NewDomainError(ErrInvalidValuation.Code,
			fmt.Sprintf("No valid rate for %s/%s", base, quote))
	}
	return amount.Mul(rate), nil
}

var _ Oracle = (*FixedRateOracle)(nil)
