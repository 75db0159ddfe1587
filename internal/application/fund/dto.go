package fund

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ModuleConfigRequest selects a fee or policy module with its settings
type ModuleConfigRequest struct {
	ID       string            `json:"id" binding:"required,min=1,max=100"`
	Settings map[string]string `json:"settings"`
}

// CreateFundRequest represents a request to create a new fund
type CreateFundRequest struct {
	Name         string                `json:"name" binding:"required,min=1,max=200"`
	Symbol       string                `json:"symbol" binding:"max=20"`
	Denomination string                `json:"denomination" binding:"required,min=1,max=100"`
	Fees         []ModuleConfigRequest `json:"fees"`
	Policies     []ModuleConfigRequest `json:"policies"`
}

// BuySharesRequest represents a share purchase
type BuySharesRequest struct {
	Investment decimal.Decimal `json:"investment" binding:"required"`
	MinShares  decimal.Decimal `json:"min_shares"`
}

// RedeemSharesRequest represents an in-kind redemption. AssetsToSkip
// lists tracked assets to exclude from the payout, forfeiting their
// pro-rata value.
type RedeemSharesRequest struct {
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	AssetsToSkip []string        `json:"assets_to_skip"`
}

// TransferSharesRequest represents a share transfer between holders
type TransferSharesRequest struct {
	To     uuid.UUID       `json:"to" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// IntegrationCallRequest represents an adapter call instruction
type IntegrationCallRequest struct {
	Adapter string `json:"adapter" binding:"required,min=1,max=100"`
	Method  string `json:"method" binding:"required,min=1,max=100"`
	Payload string `json:"payload"`
}

// SignalMigrationRequest opens a migration to a new controller built
// from the given module configuration
type SignalMigrationRequest struct {
	Fees          []ModuleConfigRequest `json:"fees"`
	Policies      []ModuleConfigRequest `json:"policies"`
	BypassFailure bool                  `json:"bypass_failure"`
}

// MigrationActionRequest executes or cancels a pending migration
type MigrationActionRequest struct {
	BypassFailure bool `json:"bypass_failure"`
}

// SetReleaseStatusRequest transitions the release gate's lifecycle state
type SetReleaseStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pre_launch live paused"`
}

// AssetAmountResponse is an asset quantity in API responses
type AssetAmountResponse struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

// FundResponse represents a fund in API responses
type FundResponse struct {
	FundID       uuid.UUID       `json:"fund_id"`
	ControllerID uuid.UUID       `json:"controller_id"`
	Owner        uuid.UUID       `json:"owner"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	Denomination string          `json:"denomination"`
	State        string          `json:"state"`
	TotalSupply  decimal.Decimal `json:"total_supply"`
	CreatedAt    time.Time       `json:"created_at"`
}

// FundValuationResponse reports a fund's current valuation
type FundValuationResponse struct {
	FundID          uuid.UUID             `json:"fund_id"`
	GrossAssetValue decimal.Decimal       `json:"gross_asset_value"`
	SharePrice      decimal.Decimal       `json:"share_price"`
	TotalSupply     decimal.Decimal       `json:"total_supply"`
	TrackedAssets   []AssetAmountResponse `json:"tracked_assets"`
}

// BuySharesResponse reports the outcome of a buy
type BuySharesResponse struct {
	FundID    uuid.UUID       `json:"fund_id"`
	Buyer     uuid.UUID       `json:"buyer"`
	NetShares decimal.Decimal `json:"net_shares"`
	Balance   decimal.Decimal `json:"balance"`
}

// RedeemSharesResponse reports the payout of a redemption
type RedeemSharesResponse struct {
	FundID   uuid.UUID             `json:"fund_id"`
	Redeemer uuid.UUID             `json:"redeemer"`
	Quantity decimal.Decimal       `json:"quantity"`
	Payouts  []AssetAmountResponse `json:"payouts"`
}

// IntegrationCallResponse reports the observed deltas of an adapter call
type IntegrationCallResponse struct {
	FundID         uuid.UUID             `json:"fund_id"`
	Adapter        string                `json:"adapter"`
	Method         string                `json:"method"`
	SpendDeltas    []AssetAmountResponse `json:"spend_deltas"`
	IncomingDeltas []AssetAmountResponse `json:"incoming_deltas"`
}

// MigrationResponse reports a fund's pending migration, if any
type MigrationResponse struct {
	FundID          uuid.UUID `json:"fund_id"`
	Pending         bool      `json:"pending"`
	NextController  uuid.UUID `json:"next_controller,omitempty"`
	SignaledAt      time.Time `json:"signaled_at,omitempty"`
	ExecutableAfter time.Time `json:"executable_after,omitempty"`
}

// ShareBalanceResponse reports one holder's share position
type ShareBalanceResponse struct {
	FundID  uuid.UUID       `json:"fund_id"`
	Holder  uuid.UUID       `json:"holder"`
	Balance decimal.Decimal `json:"balance"`
}

// ReleaseStatusResponse reports the release gate's state
type ReleaseStatusResponse struct {
	ReleaseID             uuid.UUID `json:"release_id"`
	Status                string    `json:"status"`
	ApprovedDenominations []string  `json:"approved_denominations"`
	MigrationTimelock     string    `json:"migration_timelock"`
}
