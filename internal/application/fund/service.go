package fund

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	domainfund "github.com/openfund/backend/internal/domain/fund"
	"github.com/openfund/backend/internal/domain/release"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// Service orchestrates fund operations across the release gate, the
// migration coordinator and the fund directory. It serializes all
// state-changing operations per fund, which gives every call the
// single-threaded execution the domain layer assumes.
type Service struct {
	release     *release.Release
	coordinator *release.Coordinator
	directory   domainfund.DirectoryRepository
	eventBus    shared.EventPublisher
	logger      *zap.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService creates a new fund application service
func NewService(
	rel *release.Release,
	coordinator *release.Coordinator,
	directory domainfund.DirectoryRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		release:     rel,
		coordinator: coordinator,
		directory:   directory,
		eventBus:    eventBus,
		logger:      logger,
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Service) fundLock(fundID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[fundID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[fundID] = l
	}
	return l
}

func (s *Service) controller(fundID uuid.UUID) (*domainfund.Controller, error) {
	ctrl, ok := s.coordinator.CurrentController(fundID)
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_FUND", fmt.Sprintf("Fund %s is not registered", fundID))
	}
	return ctrl, nil
}

// publishEvents drains and publishes pending domain events from the
// given aggregates. Publishing failures are logged, not surfaced: the
// action itself already succeeded.
func (s *Service) publishEvents(ctx context.Context, aggregates ...shared.AggregateRoot) {
	if s.eventBus == nil {
		return
	}
	for _, agg := range aggregates {
		events := agg.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if err := s.eventBus.Publish(ctx, events...); err != nil {
			s.logger.Error("failed to publish domain events", zap.Error(err))
		}
		agg.ClearDomainEvents()
	}
}

// CreateFund creates a fund through the release gate and records it in
// the directory
func (s *Service) CreateFund(ctx context.Context, owner uuid.UUID, req CreateFundRequest) (*FundResponse, error) {
	cfg := release.FundConfig{
		Owner:        owner,
		Name:         req.Name,
		Symbol:       req.Symbol,
		Denomination: valueobject.AssetID(req.Denomination),
		Fees:         toModuleConfigs(req.Fees),
		Policies:     toModuleConfigs(req.Policies),
	}
	ctrl, err := s.release.CreateFund(cfg)
	if err != nil {
		return nil, err
	}
	vault := ctrl.Vault()

	if s.directory != nil {
		entry := domainfund.DirectoryEntry{
			FundID:       vault.ID,
			ControllerID: ctrl.ID,
			Owner:        owner,
			Name:         vault.Name,
			Symbol:       vault.Symbol,
			Denomination: vault.DenominationAsset,
			CreatedAt:    vault.CreatedAt,
		}
		if err := s.directory.Save(ctx, entry); err != nil {
			return nil, err
		}
	}

	s.publishEvents(ctx, s.release, s.coordinator, vault, ctrl)
	return s.toFundResponse(ctrl), nil
}

// GetFund returns a fund's directory record and live state
func (s *Service) GetFund(_ context.Context, fundID uuid.UUID) (*FundResponse, error) {
	ctrl, err := s.controller(fundID)
	if err != nil {
		return nil, err
	}
	return s.toFundResponse(ctrl), nil
}

// ListFunds returns all funds in the directory
func (s *Service) ListFunds(ctx context.Context) ([]FundResponse, error) {
	if s.directory == nil {
		return nil, shared.NewDomainError("NO_DIRECTORY", "Fund directory is not configured")
	}
	entries, err := s.directory.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FundResponse, 0, len(entries))
	for _, e := range entries {
		resp := FundResponse{
			FundID:       e.FundID,
			ControllerID: e.ControllerID,
			Owner:        e.Owner,
			Name:         e.Name,
			Symbol:       e.Symbol,
			Denomination: e.Denomination.String(),
			CreatedAt:    e.CreatedAt,
		}
		if ctrl, ok := s.coordinator.CurrentController(e.FundID); ok {
			resp.ControllerID = ctrl.ID
			resp.State = string(ctrl.State())
			resp.TotalSupply = ctrl.TotalSupply()
		}
		out = append(out, resp)
	}
	return out, nil
}

// GetValuation returns a fund's gross asset value, share price and
// tracked holdings
func (s *Service) GetValuation(_ context.Context, fundID uuid.UUID) (*FundValuationResponse, error) {
	lock := s.fundLock(fundID)
	lock.Lock()
	defer lock.Unlock()

	ctrl, err := s.controller(fundID)
	if err != nil {
		return nil, err
	}
	gav, err := ctrl.GrossAssetValue()
	if err != nil {
		return nil, err
	}
	price, err := ctrl.SharePrice()
	if err != nil {
		return nil, err
	}
	vault := ctrl.Vault()
	tracked := make([]AssetAmountResponse, 0)
	for _, a := range vault.TrackedAssets() {
		tracked = append(tracked, AssetAmountResponse{Asset: a.String(), Amount: vault.AssetBalance(a)})
	}
	return &FundValuationResponse{
		FundID:          fundID,
		GrossAssetValue: gav,
		SharePrice:      price,
		TotalSupply:     ctrl.TotalSupply(),
		TrackedAssets:   tracked,
	}, nil
}

// GetShareBalance returns one holder's share position
func (s *Service) GetShareBalance(_ context.Context, fundID, holder uuid.UUID) (*ShareBalanceResponse, error) {
	ctrl, err := s.controller(fundID)
	if err != nil {
		return nil, err
	}
	return &ShareBalanceResponse{
		FundID:  fundID,
		Holder:  holder,
		Balance: ctrl.BalanceOf(holder),
	}, nil
}

// BuyShares invests denomination asset for newly minted shares
func (s *Service) BuyShares(ctx context.Context, fundID, buyer uuid.UUID, req BuySharesRequest) (*BuySharesResponse, error) {
	lock := s.fundLock(fundID)
	lock.Lock()
	defer lock.Unlock()

	ctrl, err := s.controller(fundID)
	if err != nil {
		return nil, err
	}
	netShares, err := ctrl.BuyShares(ctx, buyer, req.Investment, req.MinShares)
	if err != nil {
		s.publishEvents(ctx, ctrl)
		return nil, err
	}
	s.publishEvents(ctx, ctrl.Vault(), ctrl)
	return &BuySharesResponse{
		FundID:    fundID,
		Buyer:     buyer,
		NetShares: netShares,
		Balance:   ctrl.BalanceOf(buyer),
	}, nil
}

// RedeemShares redeems shares for a pro-rata payout of tracked assets
func (s *Service) RedeemShares(ctx context.Context, fundID, redeemer uuid.UUID, req RedeemSharesRequest) (*RedeemSharesResponse, error) {
	lock := s.fundLock(fundID)
	lock.Lock()
	defer lock.Unlock()

	ctrl, err := s.controller(fundID)
	if err != nil {
		return nil, err
	}
	skip := make([]valueobject.AssetID, 0, len(req.AssetsToSkip))
	for _, a := range req.AssetsToSkip {
		skip = append(skip, valueobject.AssetID(a))
	}
	var payouts []valueobject.AssetAmount
	if len(skip) > 0 {
		payouts, err = ctrl.RedeemSharesWithSkip(ctx, redeemer, req.Quantity, skip)
	} else {
		payouts, err = ctrl.RedeemShares(ctx, redeemer, req.Quantity)
	}
	if err != nil {
		s.publishEvents(ctx, ctrl)
		return nil, err
	}
	s.publishEvents(ctx, ctrl.Vault(), ctrl)
	return &RedeemSharesResponse{
		FundID:   fundID,
		Redeemer: redeemer,
		Quantity: req.Quantity,
		Payouts:  toAssetAmountResponses(payouts),
	}, nil
}

// TransferShares moves shares between holders through the vault,
// subject to the controller's pre-transfer hook
func (s *Service) TransferShares(ctx context.Context, fundID, from uuid.UUID, req TransferSharesRequest) error {
	lock := s.fundLock(fundID)
	lock.Lock()
	defer lock.Unlock()

	ctrl, err := s.controller(fundID)
	if err != nil {
		return err
	}
	if err := ctrl.Vault().Transfer(from, req.To, req.Amount); err != nil {
		s.publishEvents(ctx, ctrl)
		return err
	}
	s.publishEvents(ctx, ctrl.Vault(), ctrl)
	return nil
}

// CallOnIntegration forwards an adapter call for the fund owner
func (s *Service) CallOnIntegration(ctx context.Context, fundID, caller uuid.UUID, req IntegrationCallRequest) (*IntegrationCallResponse, error) {
	lock := s.fundLock(fundID)
	lock.Lock()
	defer lock.Unlock()

	ctrl, err := s.controller(fundID)
	if err != nil {
		return nil, err
	}
	result, err := ctrl.CallOnIntegration(ctx, caller, req.Adapter, req.Method, []byte(req.Payload))
	if err != nil {
		s.publishEvents(ctx, ctrl)
		return nil, err
	}
	s.publishEvents(ctx, ctrl.Vault(), ctrl)
	return &IntegrationCallResponse{
		FundID:         fundID,
		Adapter:        result.Adapter,
		Method:         result.Method,
		SpendDeltas:    toAssetAmountResponses(result.SpendDeltas),
		IncomingDeltas: toAssetAmountResponses(result.IncomingDeltas),
	}, nil
}

// SettleFees runs the continuous fee hook on demand
func (s *Service) SettleFees(ctx context.Context, fundID uuid.UUID) error {
	lock := s.fundLock(fundID)
	lock.Lock()
	defer lock.Unlock()

	ctrl, err := s.controller(fundID)
	if err != nil {
		return err
	}
	if err := ctrl.SettleContinuousFees(ctx); err != nil {
		return err
	}
	s.publishEvents(ctx, ctrl.Vault(), ctrl)
	return nil
}

// SignalMigration builds a replacement controller from the requested
// module configuration and opens a timelocked migration to it
func (s *Service) SignalMigration(ctx context.Context, fundID, caller uuid.UUID, req SignalMigrationRequest) (*MigrationResponse, error) {
	lock := s.fundLock(fundID)
	lock.Lock()
	defer lock.Unlock()

	next, err := s.release.NewMigrationController(fundID, toModuleConfigs(req.Fees), toModuleConfigs(req.Policies))
	if err != nil {
		return nil, err
	}
	if err := s.coordinator.SignalMigration(caller, fundID, next, req.BypassFailure); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, s.coordinator)
	return s.toMigrationResponse(fundID), nil
}

// ExecuteMigration performs a signaled controller swap once the
// timelock has elapsed and updates the directory
func (s *Service) ExecuteMigration(ctx context.Context, fundID, caller uuid.UUID, req MigrationActionRequest) (*MigrationResponse, error) {
	lock := s.fundLock(fundID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.coordinator.ExecuteMigration(caller, fundID, req.BypassFailure); err != nil {
		return nil, err
	}
	if s.directory != nil {
		if ctrl, ok := s.coordinator.CurrentController(fundID); ok {
			if err := s.directory.UpdateController(ctx, fundID, ctrl.ID); err != nil {
				s.logger.Error("failed to update fund directory after migration",
					zap.String("fund_id", fundID.String()), zap.Error(err))
			}
		}
	}
	s.publishEvents(ctx, s.coordinator)
	if ctrl, ok := s.coordinator.CurrentController(fundID); ok {
		s.publishEvents(ctx, ctrl.Vault(), ctrl)
	}
	return s.toMigrationResponse(fundID), nil
}

// CancelMigration withdraws a pending migration request
func (s *Service) CancelMigration(ctx context.Context, fundID, caller uuid.UUID, req MigrationActionRequest) (*MigrationResponse, error) {
	lock := s.fundLock(fundID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.coordinator.CancelMigration(caller, fundID, req.BypassFailure); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, s.coordinator)
	return s.toMigrationResponse(fundID), nil
}

// GetMigration returns a fund's pending migration request, if any
func (s *Service) GetMigration(_ context.Context, fundID uuid.UUID) (*MigrationResponse, error) {
	if _, err := s.controller(fundID); err != nil {
		return nil, err
	}
	return s.toMigrationResponse(fundID), nil
}

// SetReleaseStatus transitions the release gate's lifecycle state.
// Release owner only.
func (s *Service) SetReleaseStatus(ctx context.Context, principal uuid.UUID, req SetReleaseStatusRequest) (*ReleaseStatusResponse, error) {
	if err := s.release.SetStatus(principal, release.Status(req.Status)); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, s.release)
	return s.ReleaseStatus(ctx), nil
}

// ReleaseStatus reports the release gate's state
func (s *Service) ReleaseStatus(_ context.Context) *ReleaseStatusResponse {
	denoms := make([]string, 0)
	for _, a := range s.release.ApprovedDenominations() {
		denoms = append(denoms, a.String())
	}
	return &ReleaseStatusResponse{
		ReleaseID:             s.release.ID,
		Status:                string(s.release.Status()),
		ApprovedDenominations: denoms,
		MigrationTimelock:     s.coordinator.Timelock().String(),
	}
}

func (s *Service) toFundResponse(ctrl *domainfund.Controller) *FundResponse {
	vault := ctrl.Vault()
	return &FundResponse{
		FundID:       vault.ID,
		ControllerID: ctrl.ID,
		Owner:        vault.Owner(),
		Name:         vault.Name,
		Symbol:       vault.Symbol,
		Denomination: vault.DenominationAsset.String(),
		State:        string(ctrl.State()),
		TotalSupply:  ctrl.TotalSupply(),
		CreatedAt:    vault.CreatedAt,
	}
}

func (s *Service) toMigrationResponse(fundID uuid.UUID) *MigrationResponse {
	req, pending := s.coordinator.PendingRequest(fundID)
	resp := &MigrationResponse{FundID: fundID, Pending: pending}
	if pending {
		resp.NextController = req.NextController.ID
		resp.SignaledAt = req.SignaledAt
		resp.ExecutableAfter = req.ExecutableAfter
	}
	return resp
}

func toModuleConfigs(reqs []ModuleConfigRequest) []release.ModuleConfig {
	out := make([]release.ModuleConfig, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, release.ModuleConfig{ID: r.ID, Settings: r.Settings})
	}
	return out
}

func toAssetAmountResponses(amounts []valueobject.AssetAmount) []AssetAmountResponse {
	out := make([]AssetAmountResponse, 0, len(amounts))
	for _, aa := range amounts {
		out = append(out, AssetAmountResponse{Asset: aa.Asset().String(), Amount: aa.Amount()})
	}
	return out
}
