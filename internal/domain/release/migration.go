package release

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/asset"
	"github.com/openfund/backend/internal/domain/fund"
	"github.com/openfund/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MigrationRequest is a pending accessor swap for one fund
type MigrationRequest struct {
	FundID          uuid.UUID
	NextController  *fund.Controller
	SignaledAt      time.Time
	ExecutableAfter time.Time
}

type fundRegistration struct {
	vault      *asset.Vault
	controller *fund.Controller
}

// Coordinator is the global registry of fund-to-controller bindings and
// the only component authorized to swap a vault's accessor. Every swap
// after the initial wiring goes through a signal/execute cycle gated by
// a global timelock.
type Coordinator struct {
	shared.BaseAggregateRoot

	clock    shared.Clock
	logger   *zap.Logger
	timelock time.Duration

	funds    map[uuid.UUID]*fundRegistration
	requests map[uuid.UUID]*MigrationRequest
}

// NewCoordinator creates a migration coordinator with the given global
// migration timelock
func NewCoordinator(timelock time.Duration, clock shared.Clock, logger *zap.Logger) (*Coordinator, error) {
	if timelock < 0 {
		return nil, shared.NewDomainError("INVALID_TIMELOCK", "Migration timelock cannot be negative")
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		clock:             clock,
		logger:            logger,
		timelock:          timelock,
		funds:             make(map[uuid.UUID]*fundRegistration),
		requests:          make(map[uuid.UUID]*MigrationRequest),
	}, nil
}

// Timelock returns the global migration timelock
func (c *Coordinator) Timelock() time.Duration {
	return c.timelock
}

// RegisterFund performs the initial wiring of a newly created fund:
// the controller becomes the vault's accessor and is activated. Called
// by the release gate during fund creation.
func (c *Coordinator) RegisterFund(vault *asset.Vault, controller *fund.Controller) error {
	if vault == nil || controller == nil {
		return shared.NewDomainError("INVALID_REGISTRATION", "Vault and controller are required")
	}
	if _, exists := c.funds[vault.ID]; exists {
		return shared.NewDomainError("ALREADY_REGISTERED", fmt.Sprintf("Fund %s is already registered", vault.ID))
	}
	if err := vault.SetAccessor(c.ID, controller); err != nil {
		return err
	}
	if err := controller.Activate(c.ID); err != nil {
		return err
	}
	c.funds[vault.ID] = &fundRegistration{vault: vault, controller: controller}
	c.AddDomainEvent(NewFundRegisteredEvent(c, vault.ID, controller.ID))
	c.logger.Info("fund registered",
		zap.String("fund_id", vault.ID.String()),
		zap.String("controller_id", controller.ID.String()),
	)
	return nil
}

// CurrentController returns the controller currently bound to a fund
func (c *Coordinator) CurrentController(fundID uuid.UUID) (*fund.Controller, bool) {
	reg, ok := c.funds[fundID]
	if !ok {
		return nil, false
	}
	return reg.controller, true
}

// PendingRequest returns the fund's pending migration request, if any
func (c *Coordinator) PendingRequest(fundID uuid.UUID) (MigrationRequest, bool) {
	req, ok := c.requests[fundID]
	if !ok {
		return MigrationRequest{}, false
	}
	return *req, true
}

// SignalMigration opens a migration of the fund to a new controller.
// Fund owner only. The swap becomes executable once the global
// timelock has fully elapsed. At most one request may be pending per
// fund; a new signal requires cancelling the pending one first.
func (c *Coordinator) SignalMigration(caller, fundID uuid.UUID, next *fund.Controller, bypassFailure bool) error {
	reg, ok := c.funds[fundID]
	if !ok {
		return shared.NewDomainError("UNKNOWN_FUND", fmt.Sprintf("Fund %s is not registered", fundID))
	}
	if !reg.vault.IsOwner(caller) {
		return shared.ErrUnauthorized
	}
	if _, pending := c.requests[fundID]; pending {
		return shared.NewDomainError("MIGRATION_PENDING", "Fund already has a pending migration; cancel it first")
	}
	if next == nil {
		return shared.NewDomainError("INVALID_CONTROLLER", "Next controller is required")
	}
	if next.ID == reg.controller.ID {
		return shared.NewDomainError("INVALID_CONTROLLER", "Next controller is already bound to the fund")
	}

	if err := c.invokeOutHook(reg.controller, fund.PhasePreSignal, bypassFailure); err != nil {
		return err
	}

	now := c.clock.Now()
	c.requests[fundID] = &MigrationRequest{
		FundID:          fundID,
		NextController:  next,
		SignaledAt:      now,
		ExecutableAfter: now.Add(c.timelock),
	}
	c.AddDomainEvent(NewMigrationSignaledEvent(c, fundID, reg.controller.ID, next.ID, now.Add(c.timelock)))
	c.logger.Info("migration signaled",
		zap.String("fund_id", fundID.String()),
		zap.String("next_controller", next.ID.String()),
		zap.Time("executable_after", now.Add(c.timelock)),
	)
	return nil
}

// ExecuteMigration performs a signaled swap once the timelock has
// elapsed. The boundary is inclusive: execution at exactly the
// executable-after instant succeeds. The outgoing controller is
// destructed; the vault's ledger and custody are untouched.
func (c *Coordinator) ExecuteMigration(caller, fundID uuid.UUID, bypassFailure bool) error {
	reg, ok := c.funds[fundID]
	if !ok {
		return shared.NewDomainError("UNKNOWN_FUND", fmt.Sprintf("Fund %s is not registered", fundID))
	}
	if !reg.vault.IsOwner(caller) {
		return shared.ErrUnauthorized
	}
	req, ok := c.requests[fundID]
	if !ok {
		return shared.NewDomainError("NO_MIGRATION", "Fund has no pending migration")
	}
	if c.clock.Now().Before(req.ExecutableAfter) {
		return shared.ErrTimelockNotElapsed
	}

	outgoing := reg.controller
	incoming := req.NextController

	if err := c.invokeOutHook(outgoing, fund.PhasePreMigrate, bypassFailure); err != nil {
		return err
	}

	if err := reg.vault.SetAccessor(c.ID, incoming); err != nil {
		return err
	}
	// Any failure past the swap rolls the accessor back: a failed
	// execute leaves the fund on the outgoing controller with the
	// request still pending.
	if incoming.State() != fund.StateActive {
		if err := incoming.Activate(c.ID); err != nil {
			_ = reg.vault.SetAccessor(c.ID, outgoing)
			return err
		}
	}
	if err := c.invokeInHook(incoming, fund.PhasePostMigrate, bypassFailure); err != nil {
		_ = reg.vault.SetAccessor(c.ID, outgoing)
		return err
	}
	if err := outgoing.Destruct(c.ID); err != nil {
		_ = reg.vault.SetAccessor(c.ID, outgoing)
		return err
	}
	reg.controller = incoming
	delete(c.requests, fundID)

	c.AddDomainEvent(NewMigrationExecutedEvent(c, fundID, outgoing.ID, incoming.ID))
	c.logger.Info("migration executed",
		zap.String("fund_id", fundID.String()),
		zap.String("outgoing_controller", outgoing.ID.String()),
		zap.String("incoming_controller", incoming.ID.String()),
	)
	return nil
}

// CancelMigration withdraws a pending migration request. Fund owner
// only. The bound controller is unaffected.
func (c *Coordinator) CancelMigration(caller, fundID uuid.UUID, bypassFailure bool) error {
	reg, ok := c.funds[fundID]
	if !ok {
		return shared.NewDomainError("UNKNOWN_FUND", fmt.Sprintf("Fund %s is not registered", fundID))
	}
	if !reg.vault.IsOwner(caller) {
		return shared.ErrUnauthorized
	}
	req, ok := c.requests[fundID]
	if !ok {
		return shared.NewDomainError("NO_MIGRATION", "Fund has no pending migration")
	}

	if err := c.invokeOutHook(reg.controller, fund.PhasePostCancel, bypassFailure); err != nil {
		return err
	}
	if err := c.invokeInHook(req.NextController, fund.PhasePostCancel, bypassFailure); err != nil {
		return err
	}

	delete(c.requests, fundID)
	c.AddDomainEvent(NewMigrationCancelledEvent(c, fundID, req.NextController.ID))
	c.logger.Info("migration cancelled",
		zap.String("fund_id", fundID.String()),
		zap.String("next_controller", req.NextController.ID.String()),
	)
	return nil
}

// A failing lifecycle hook aborts the migration step unless
// bypassFailure is set, in which case the failure is logged and
// swallowed so a broken controller cannot hold a fund hostage.
func (c *Coordinator) invokeOutHook(ctrl *fund.Controller, phase fund.MigrationPhase, bypassFailure bool) error {
	err := ctrl.InvokeMigrationOutHook(c.ID, phase)
	if err == nil {
		return nil
	}
	if !bypassFailure {
		return err
	}
	c.logger.Warn("outgoing migration hook failed, bypassed",
		zap.String("controller_id", ctrl.ID.String()),
		zap.String("phase", string(phase)),
		zap.Error(err),
	)
	return nil
}

func (c *Coordinator) invokeInHook(ctrl *fund.Controller, phase fund.MigrationPhase, bypassFailure bool) error {
	err := ctrl.InvokeMigrationInCancelHook(c.ID, phase)
	if err == nil {
		return nil
	}
	if !bypassFailure {
		return err
	}
	c.logger.Warn("incoming migration hook failed, bypassed",
		zap.String("controller_id", ctrl.ID.String()),
		zap.String("phase", string(phase)),
		zap.Error(err),
	)
	return nil
}
