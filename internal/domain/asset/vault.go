package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Accessor is the single component currently authorized to direct the
// vault's custody and ledger mutations. The vault holds an
// interface-typed reference to its current accessor and swaps it only
// through the migration coordinator.
type Accessor interface {
	// AccessorID identifies the accessor for authorization checks
	AccessorID() uuid.UUID
	// PreTransferSharesHook is invoked before every share transfer and
	// may reject it
	PreTransferSharesHook(from, to uuid.UUID, amount decimal.Decimal) error
}

// AssetTransferor moves custody assets to an external target. The
// default implementation always succeeds; tests and simulations inject
// failing transferors to exercise redemption skip semantics.
type AssetTransferor interface {
	TransferOut(asset valueobject.AssetID, amount decimal.Decimal, target string) error
}

type noopTransferor struct{}

func (noopTransferor) TransferOut(valueobject.AssetID, decimal.Decimal, string) error {
	return nil
}

// ContractCaller performs an owner-directed external contract call.
// The actual protocol translation is an external collaborator.
type ContractCaller interface {
	Call(contract uuid.UUID, method string, payload []byte) error
}

type noopContractCaller struct{}

func (noopContractCaller) Call(uuid.UUID, string, []byte) error { return nil }

// AllowedCall is a pre-registered (contract, method, payload-hash)
// triple the fund owner may invoke through the vault. An empty
// PayloadHash allows any payload for the pair.
type AllowedCall struct {
	Contract    uuid.UUID
	Method      string
	PayloadHash string
}

func allowedCallKey(contract uuid.UUID, method string) string {
	return contract.String() + "|" + method
}

// Vault owns asset custody and the fungible share ledger for one fund.
// The fund is identified by the vault's ID. Only the current accessor
// may direct custody or mint/burn shares; the accessor itself is
// swapped only by the migration coordinator.
type Vault struct {
	shared.BaseAggregateRoot
	shared.Nominee

	Name              string
	Symbol            string
	DenominationAsset valueobject.AssetID

	coordinatorID uuid.UUID
	releaseID     uuid.UUID
	accessor      Accessor

	totalSupply decimal.Decimal
	balances    map[uuid.UUID]decimal.Decimal
	allowances  map[uuid.UUID]map[uuid.UUID]decimal.Decimal

	holdings     map[valueobject.AssetID]decimal.Decimal
	tracked      []valueobject.AssetID
	allowedCalls map[string]AllowedCall

	transferor     AssetTransferor
	contractCaller ContractCaller
}

// VaultOption configures optional vault collaborators
type VaultOption func(*Vault)

// WithAssetTransferor overrides the custody transfer collaborator
func WithAssetTransferor(t AssetTransferor) VaultOption {
	return func(v *Vault) { v.transferor = t }
}

// WithContractCaller overrides the owner-call collaborator
func WithContractCaller(c ContractCaller) VaultOption {
	return func(v *Vault) { v.contractCaller = c }
}

// NewVault creates a new vault for a fund. The denomination asset is
// tracked from the start; the accessor is wired afterwards by the
// migration coordinator on behalf of the release gate.
func NewVault(
	owner uuid.UUID,
	name string,
	symbol string,
	denomination valueobject.AssetID,
	coordinatorID uuid.UUID,
	releaseID uuid.UUID,
	opts ...VaultOption,
) (*Vault, error) {
	if owner == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Fund owner cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Fund name cannot be empty")
	}
	if denomination.IsZero() {
		return nil, shared.NewDomainError("INVALID_DENOMINATION", "Denomination asset cannot be empty")
	}
	if coordinatorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COORDINATOR", "Migration coordinator ID cannot be empty")
	}

	v := &Vault{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Nominee:           shared.NewNominee(owner),
		Name:              name,
		Symbol:            symbol,
		DenominationAsset: denomination,
		coordinatorID:     coordinatorID,
		releaseID:         releaseID,
		totalSupply:       decimal.Zero,
		balances:          make(map[uuid.UUID]decimal.Decimal),
		allowances:        make(map[uuid.UUID]map[uuid.UUID]decimal.Decimal),
		holdings:          make(map[valueobject.AssetID]decimal.Decimal),
		tracked:           []valueobject.AssetID{denomination},
		allowedCalls:      make(map[string]AllowedCall),
		transferor:        noopTransferor{},
		contractCaller:    noopContractCaller{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// AccessorID returns the current accessor's ID, or uuid.Nil when the
// vault has not been wired yet
func (v *Vault) AccessorID() uuid.UUID {
	if v.accessor == nil {
		return uuid.Nil
	}
	return v.accessor.AccessorID()
}

// SetAccessor atomically swaps the accessor. Callable only by the
// migration coordinator during fund creation or an executed migration.
func (v *Vault) SetAccessor(caller uuid.UUID, next Accessor) error {
	if caller != v.coordinatorID {
		return shared.ErrUnauthorized
	}
	if next == nil {
		return shared.NewDomainError("INVALID_ACCESSOR", "Accessor cannot be nil")
	}
	prev := v.AccessorID()
	v.accessor = next
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
	v.AddDomainEvent(NewAccessorChangedEvent(v, prev, next.AccessorID()))
	return nil
}

func (v *Vault) requireAccessor(caller uuid.UUID) error {
	if v.accessor == nil {
		return shared.NewDomainError("NO_ACCESSOR", "Vault has no active accessor")
	}
	if caller != v.accessor.AccessorID() {
		return shared.ErrUnauthorized
	}
	return nil
}

// TotalSupply returns the total share supply
func (v *Vault) TotalSupply() decimal.Decimal {
	return v.totalSupply
}

// BalanceOf returns the share balance of a holder
func (v *Vault) BalanceOf(holder uuid.UUID) decimal.Decimal {
	if bal, ok := v.balances[holder]; ok {
		return bal
	}
	return decimal.Zero
}

// Allowance returns the remaining transfer allowance from holder to spender
func (v *Vault) Allowance(holder, spender uuid.UUID) decimal.Decimal {
	if m, ok := v.allowances[holder]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return decimal.Zero
}

// MintShares creates new shares for a holder. Accessor only.
func (v *Vault) MintShares(caller, to uuid.UUID, amount decimal.Decimal) error {
	if err := v.requireAccessor(caller); err != nil {
		return err
	}
	if to == uuid.Nil {
		return shared.NewDomainError("INVALID_HOLDER", "Mint target cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Mint amount must be positive")
	}
	v.balances[to] = v.BalanceOf(to).Add(amount)
	v.totalSupply = v.totalSupply.Add(amount)
	v.AddDomainEvent(NewSharesMintedEvent(v, to, amount))
	return nil
}

// BurnShares destroys shares held by a holder. Accessor only.
func (v *Vault) BurnShares(caller, from uuid.UUID, amount decimal.Decimal) error {
	if err := v.requireAccessor(caller); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Burn amount must be positive")
	}
	bal := v.BalanceOf(from)
	if bal.LessThan(amount) {
		return shared.ErrInsufficientShares
	}
	v.balances[from] = bal.Sub(amount)
	if v.balances[from].IsZero() {
		delete(v.balances, from)
	}
	v.totalSupply = v.totalSupply.Sub(amount)
	v.AddDomainEvent(NewSharesBurnedEvent(v, from, amount))
	return nil
}

// Transfer moves shares between holders. The accessor's pre-transfer
// hook runs first and may reject the transfer.
func (v *Vault) Transfer(from, to uuid.UUID, amount decimal.Decimal) error {
	return v.transfer(from, to, amount)
}

// Approve grants spender a transfer allowance over holder's shares
func (v *Vault) Approve(holder, spender uuid.UUID, amount decimal.Decimal) error {
	if holder == uuid.Nil || spender == uuid.Nil {
		return shared.NewDomainError("INVALID_HOLDER", "Holder and spender cannot be empty")
	}
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Allowance cannot be negative")
	}
	if _, ok := v.allowances[holder]; !ok {
		v.allowances[holder] = make(map[uuid.UUID]decimal.Decimal)
	}
	v.allowances[holder][spender] = amount
	return nil
}

// TransferFrom moves shares on behalf of a holder within the spender's
// allowance. The accessor's pre-transfer hook runs first.
func (v *Vault) TransferFrom(spender, from, to uuid.UUID, amount decimal.Decimal) error {
	allowance := v.Allowance(from, spender)
	if allowance.LessThan(amount) {
		return shared.NewDomainError("INSUFFICIENT_ALLOWANCE", "Transfer amount exceeds allowance")
	}
	if err := v.transfer(from, to, amount); err != nil {
		return err
	}
	v.allowances[from][spender] = allowance.Sub(amount)
	return nil
}

func (v *Vault) transfer(from, to uuid.UUID, amount decimal.Decimal) error {
	if from == uuid.Nil || to == uuid.Nil {
		return shared.NewDomainError("INVALID_HOLDER", "Transfer parties cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Transfer amount must be positive")
	}
	if v.accessor == nil {
		return shared.NewDomainError("NO_ACCESSOR", "Vault has no active accessor")
	}
	if err := v.accessor.PreTransferSharesHook(from, to, amount); err != nil {
		return err
	}
	bal := v.BalanceOf(from)
	if bal.LessThan(amount) {
		return shared.ErrInsufficientShares
	}
	v.balances[from] = bal.Sub(amount)
	if v.balances[from].IsZero() {
		delete(v.balances, from)
	}
	v.balances[to] = v.BalanceOf(to).Add(amount)
	v.AddDomainEvent(NewSharesTransferredEvent(v, from, to, amount))
	return nil
}

// AssetBalance returns the custody balance of an asset
func (v *Vault) AssetBalance(asset valueobject.AssetID) decimal.Decimal {
	if bal, ok := v.holdings[asset]; ok {
		return bal
	}
	return decimal.Zero
}

// DepositAsset credits custody with an asset amount
func (v *Vault) DepositAsset(asset valueobject.AssetID, amount decimal.Decimal) error {
	if asset.IsZero() {
		return shared.NewDomainError("INVALID_ASSET", "Asset identifier cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Deposit amount must be positive")
	}
	v.holdings[asset] = v.AssetBalance(asset).Add(amount)
	v.AddDomainEvent(NewAssetDepositedEvent(v, asset, amount))
	return nil
}

// WithdrawAssetTo debits custody and moves the asset to an external
// target. Accessor only. Fails when custody holds less than amount or
// when the external transfer fails.
func (v *Vault) WithdrawAssetTo(caller uuid.UUID, asset valueobject.AssetID, amount decimal.Decimal, target string) error {
	if err := v.requireAccessor(caller); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Withdrawal amount must be positive")
	}
	bal := v.AssetBalance(asset)
	if bal.LessThan(amount) {
		return shared.ErrInsufficientBalance
	}
	if err := v.transferor.TransferOut(asset, amount, target); err != nil {
		return shared.NewDomainError("TRANSFER_FAILED", fmt.Sprintf("Asset transfer failed: %v", err))
	}
	v.holdings[asset] = bal.Sub(amount)
	if v.holdings[asset].IsZero() {
		delete(v.holdings, asset)
	}
	v.AddDomainEvent(NewAssetWithdrawnEvent(v, asset, amount, target))
	return nil
}

// TrackedAssets returns the ordered set of assets the vault accounts
// for when computing gross asset value
func (v *Vault) TrackedAssets() []valueobject.AssetID {
	out := make([]valueobject.AssetID, len(v.tracked))
	copy(out, v.tracked)
	return out
}

// IsTrackedAsset reports whether an asset is in the tracked set
func (v *Vault) IsTrackedAsset(asset valueobject.AssetID) bool {
	for _, a := range v.tracked {
		if a == asset {
			return true
		}
	}
	return false
}

// AddTrackedAsset adds an asset to the tracked set. Accessor only.
// Adding an already tracked asset is a no-op.
func (v *Vault) AddTrackedAsset(caller uuid.UUID, asset valueobject.AssetID) error {
	if err := v.requireAccessor(caller); err != nil {
		return err
	}
	if asset.IsZero() {
		return shared.NewDomainError("INVALID_ASSET", "Asset identifier cannot be empty")
	}
	if v.IsTrackedAsset(asset) {
		return nil
	}
	v.tracked = append(v.tracked, asset)
	v.AddDomainEvent(NewTrackedAssetAddedEvent(v, asset))
	return nil
}

// RemoveTrackedAsset removes an asset from the tracked set. Accessor
// only. An asset may be removed only when its custody balance is zero;
// the denomination asset is never removed.
func (v *Vault) RemoveTrackedAsset(caller uuid.UUID, asset valueobject.AssetID) error {
	if err := v.requireAccessor(caller); err != nil {
		return err
	}
	if asset == v.DenominationAsset {
		return shared.NewDomainError("INVALID_ASSET", "Denomination asset cannot be untracked")
	}
	if !v.AssetBalance(asset).IsZero() {
		return shared.NewDomainError("ASSET_STILL_HELD", "Cannot untrack an asset with a non-zero balance")
	}
	for i, a := range v.tracked {
		if a == asset {
			v.tracked = append(v.tracked[:i], v.tracked[i+1:]...)
			v.AddDomainEvent(NewTrackedAssetRemovedEvent(v, asset))
			return nil
		}
	}
	return nil
}

// RegisterAllowedCall registers a (contract, method, payload-hash)
// triple for owner-directed calls. Callable only by the release gate.
func (v *Vault) RegisterAllowedCall(caller, contract uuid.UUID, method, payloadHash string) error {
	if caller != v.releaseID {
		return shared.ErrUnauthorized
	}
	if contract == uuid.Nil || method == "" {
		return shared.NewDomainError("INVALID_CALL", "Contract and method are required")
	}
	v.allowedCalls[allowedCallKey(contract, method)] = AllowedCall{
		Contract:    contract,
		Method:      method,
		PayloadHash: payloadHash,
	}
	v.AddDomainEvent(NewAllowedCallRegisteredEvent(v, contract, method))
	return nil
}

// DeregisterAllowedCall removes a registered call triple. Callable
// only by the release gate.
func (v *Vault) DeregisterAllowedCall(caller, contract uuid.UUID, method string) error {
	if caller != v.releaseID {
		return shared.ErrUnauthorized
	}
	delete(v.allowedCalls, allowedCallKey(contract, method))
	return nil
}

// CallOnContract performs an owner-directed external call. Only the
// fund owner may call, only for registered (contract, method) pairs,
// and only with a payload matching the registered hash constraint.
func (v *Vault) CallOnContract(caller, contract uuid.UUID, method string, payload []byte) error {
	if !v.IsOwner(caller) {
		return shared.ErrUnauthorized
	}
	allowed, ok := v.allowedCalls[allowedCallKey(contract, method)]
	if !ok {
		return shared.NewDomainError("UNREGISTERED_CALL", "Contract call is not registered for this fund")
	}
	if allowed.PayloadHash != "" {
		sum := sha256.Sum256(payload)
		if hex.EncodeToString(sum[:]) != allowed.PayloadHash {
			return shared.NewDomainError("PAYLOAD_MISMATCH", "Payload does not match the registered constraint")
		}
	}
	if err := v.contractCaller.Call(contract, method, payload); err != nil {
		return shared.NewDomainError("CALL_FAILED", fmt.Sprintf("Owner call failed: %v", err))
	}
	v.AddDomainEvent(NewOwnerCallExecutedEvent(v, contract, method))
	return nil
}

// Snapshot captures the vault's mutable ledger and custody state so a
// failed operation can be rolled back atomically
type Snapshot struct {
	totalSupply decimal.Decimal
	balances    map[uuid.UUID]decimal.Decimal
	allowances  map[uuid.UUID]map[uuid.UUID]decimal.Decimal
	holdings    map[valueobject.AssetID]decimal.Decimal
	tracked     []valueobject.AssetID
	eventCount  int
}

// TakeSnapshot captures the current ledger and custody state
func (v *Vault) TakeSnapshot() Snapshot {
	balances := make(map[uuid.UUID]decimal.Decimal, len(v.balances))
	for k, b := range v.balances {
		balances[k] = b
	}
	allowances := make(map[uuid.UUID]map[uuid.UUID]decimal.Decimal, len(v.allowances))
	for k, m := range v.allowances {
		inner := make(map[uuid.UUID]decimal.Decimal, len(m))
		for s, a := range m {
			inner[s] = a
		}
		allowances[k] = inner
	}
	holdings := make(map[valueobject.AssetID]decimal.Decimal, len(v.holdings))
	for k, b := range v.holdings {
		holdings[k] = b
	}
	tracked := make([]valueobject.AssetID, len(v.tracked))
	copy(tracked, v.tracked)
	return Snapshot{
		totalSupply: v.totalSupply,
		balances:    balances,
		allowances:  allowances,
		holdings:    holdings,
		tracked:     tracked,
		eventCount:  len(v.GetDomainEvents()),
	}
}

// Restore rolls the vault back to a previously taken snapshot,
// discarding events recorded since
func (v *Vault) Restore(s Snapshot) {
	v.totalSupply = s.totalSupply
	v.balances = s.balances
	v.allowances = s.allowances
	v.holdings = s.holdings
	v.tracked = s.tracked
	events := v.GetDomainEvents()
	if len(events) > s.eventCount {
		v.ClearDomainEvents()
		for _, e := range events[:s.eventCount] {
			v.AddDomainEvent(e)
		}
	}
}
