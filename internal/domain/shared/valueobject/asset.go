package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetID identifies an asset (token denomination) held in custody
type AssetID string

// String returns the asset identifier as a string
func (a AssetID) String() string {
	return string(a)
}

// IsZero reports whether the asset identifier is empty
func (a AssetID) IsZero() bool {
	return a == ""
}

// AssetAmount is a value object pairing an asset with a quantity.
// It is immutable - all operations return new AssetAmount instances.
type AssetAmount struct {
	asset  AssetID
	amount decimal.Decimal
}

// NewAssetAmount creates a new AssetAmount
func NewAssetAmount(asset AssetID, amount decimal.Decimal) (AssetAmount, error) {
	if asset.IsZero() {
		return AssetAmount{}, fmt.Errorf("asset identifier cannot be empty")
	}
	return AssetAmount{asset: asset, amount: amount}, nil
}

// MustAssetAmount creates a new AssetAmount, panicking on an empty asset id
func MustAssetAmount(asset AssetID, amount decimal.Decimal) AssetAmount {
	aa, err := NewAssetAmount(asset, amount)
	if err != nil {
		panic(err)
	}
	return aa
}

// NewAssetAmountFromFloat creates an AssetAmount from a float64 quantity
func NewAssetAmountFromFloat(asset AssetID, amount float64) (AssetAmount, error) {
	return NewAssetAmount(asset, decimal.NewFromFloat(amount))
}

// NewAssetAmountFromString creates an AssetAmount from a string quantity
func NewAssetAmountFromString(asset AssetID, amount string) (AssetAmount, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return AssetAmount{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewAssetAmount(asset, d)
}

// Zero returns a zero quantity of the asset
func Zero(asset AssetID) AssetAmount {
	return AssetAmount{asset: asset, amount: decimal.Zero}
}

// Asset returns the asset identifier
func (a AssetAmount) Asset() AssetID {
	return a.asset
}

// Amount returns the decimal quantity
func (a AssetAmount) Amount() decimal.Decimal {
	return a.amount
}

// IsZero reports whether the quantity is zero
func (a AssetAmount) IsZero() bool {
	return a.amount.IsZero()
}

// IsPositive reports whether the quantity is positive
func (a AssetAmount) IsPositive() bool {
	return a.amount.IsPositive()
}

// IsNegative reports whether the quantity is negative
func (a AssetAmount) IsNegative() bool {
	return a.amount.IsNegative()
}

// Add returns the sum of both quantities.
// Returns an error if the assets differ.
func (a AssetAmount) Add(other AssetAmount) (AssetAmount, error) {
	if a.asset != other.asset {
		return AssetAmount{}, fmt.Errorf("cannot add amounts of different assets: %s and %s", a.asset, other.asset)
	}
	return AssetAmount{asset: a.asset, amount: a.amount.Add(other.amount)}, nil
}

// Sub returns the difference of both quantities.
// Returns an error if the assets differ.
func (a AssetAmount) Sub(other AssetAmount) (AssetAmount, error) {
	if a.asset != other.asset {
		return AssetAmount{}, fmt.Errorf("cannot subtract amounts of different assets: %s and %s", a.asset, other.asset)
	}
	return AssetAmount{asset: a.asset, amount: a.amount.Sub(other.amount)}, nil
}

// Mul returns the quantity multiplied by the given factor
func (a AssetAmount) Mul(factor decimal.Decimal) AssetAmount {
	return AssetAmount{asset: a.asset, amount: a.amount.Mul(factor)}
}

// Equals reports whether both values have the same asset and quantity
func (a AssetAmount) Equals(other AssetAmount) bool {
	return a.asset == other.asset && a.amount.Equal(other.amount)
}

// String returns a human-readable representation
func (a AssetAmount) String() string {
	return fmt.Sprintf("%s %s", a.amount.String(), a.asset)
}
