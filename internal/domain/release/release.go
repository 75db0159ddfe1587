package release

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/asset"
	"github.com/openfund/backend/internal/domain/extension"
	"github.com/openfund/backend/internal/domain/fund"
	"github.com/openfund/backend/internal/domain/integration"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/openfund/backend/internal/domain/valuation"
	"go.uber.org/zap"
)

// Status is the release's lifecycle state
type Status string

const (
	// StatusPreLaunch is the state before the release accepts funds
	StatusPreLaunch Status = "pre_launch"
	// StatusLive is the normal operating state
	StatusLive Status = "live"
	// StatusPaused suspends new fund creation; existing funds keep running
	StatusPaused Status = "paused"
)

// ModuleConfig selects one fee or policy module from the catalog with
// its per-fund settings
type ModuleConfig struct {
	ID       string
	Settings extension.ModuleSettings
}

// FundConfig is the full configuration of a new fund
type FundConfig struct {
	Owner        uuid.UUID
	Name         string
	Symbol       string
	Denomination valueobject.AssetID
	Fees         []ModuleConfig
	Policies     []ModuleConfig
	VaultOptions []asset.VaultOption
}

// Release is the deployment gate of one protocol version: it creates
// funds, owns the approved denomination list and the module catalog,
// and registers owner-call triples on vaults. Governance controls its
// status and configuration through two-step ownership.
type Release struct {
	shared.BaseAggregateRoot
	shared.Nominee

	status  Status
	catalog *extension.Catalog
	router  *integration.Router
	oracle  valuation.Oracle
	clock   shared.Clock
	logger  *zap.Logger

	coordinator          *Coordinator
	approvedDenoms       map[valueobject.AssetID]struct{}
	sharesActionTimelock time.Duration
}

// NewRelease creates a release in the pre-launch state
func NewRelease(
	owner uuid.UUID,
	coordinator *Coordinator,
	catalog *extension.Catalog,
	router *integration.Router,
	oracle valuation.Oracle,
	clock shared.Clock,
	sharesActionTimelock time.Duration,
	logger *zap.Logger,
) (*Release, error) {
	if owner == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Release owner cannot be empty")
	}
	if coordinator == nil {
		return nil, shared.NewDomainError("INVALID_COORDINATOR", "Migration coordinator is required")
	}
	if oracle == nil {
		return nil, shared.NewDomainError("INVALID_ORACLE", "Valuation oracle is required")
	}
	if sharesActionTimelock < 0 {
		return nil, shared.NewDomainError("INVALID_TIMELOCK", "Shares-action timelock cannot be negative")
	}
	if catalog == nil {
		catalog = extension.DefaultCatalog()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Release{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		Nominee:              shared.NewNominee(owner),
		status:               StatusPreLaunch,
		catalog:              catalog,
		router:               router,
		oracle:               oracle,
		clock:                clock,
		logger:               logger,
		coordinator:          coordinator,
		approvedDenoms:       make(map[valueobject.AssetID]struct{}),
		sharesActionTimelock: sharesActionTimelock,
	}, nil
}

// Status returns the release's lifecycle state
func (r *Release) Status() Status {
	return r.status
}

// Coordinator returns the migration coordinator backing the release
func (r *Release) Coordinator() *Coordinator {
	return r.coordinator
}

// SetStatus transitions the release's lifecycle state. Owner only.
// Pre-launch can only go live; live and paused toggle between each
// other.
func (r *Release) SetStatus(caller uuid.UUID, next Status) error {
	if !r.IsOwner(caller) {
		return shared.ErrUnauthorized
	}
	valid := false
	switch r.status {
	case StatusPreLaunch:
		valid = next == StatusLive
	case StatusLive:
		valid = next == StatusPaused
	case StatusPaused:
		valid = next == StatusLive
	}
	if !valid {
		return shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Cannot transition release from %s to %s", r.status, next))
	}
	prev := r.status
	r.status = next
	r.AddDomainEvent(NewStatusChangedEvent(r, prev, next))
	r.logger.Info("release status changed",
		zap.String("release_id", r.ID.String()),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)
	return nil
}

// ApproveDenomination adds an asset to the approved denomination list.
// Owner only.
func (r *Release) ApproveDenomination(caller uuid.UUID, a valueobject.AssetID) error {
	if !r.IsOwner(caller) {
		return shared.ErrUnauthorized
	}
	if a.IsZero() {
		return shared.NewDomainError("INVALID_DENOMINATION", "Denomination asset cannot be empty")
	}
	r.approvedDenoms[a] = struct{}{}
	return nil
}

// IsApprovedDenomination reports whether an asset may denominate funds
func (r *Release) IsApprovedDenomination(a valueobject.AssetID) bool {
	_, ok := r.approvedDenoms[a]
	return ok
}

// ApprovedDenominations returns the approved denomination assets
func (r *Release) ApprovedDenominations() []valueobject.AssetID {
	out := make([]valueobject.AssetID, 0, len(r.approvedDenoms))
	for a := range r.approvedDenoms {
		out = append(out, a)
	}
	return out
}

// CreateFund builds a vault and its controller from the configuration,
// wires the selected fee and policy modules from the catalog, and
// registers the pair with the migration coordinator, which makes the
// controller the vault's accessor and activates it. Requires the
// release to be live and the denomination to be approved.
func (r *Release) CreateFund(cfg FundConfig) (*fund.Controller, error) {
	if r.status != StatusLive {
		return nil, shared.NewDomainError("RELEASE_NOT_LIVE",
			fmt.Sprintf("Release is %s, fund creation requires live", r.status))
	}
	if !r.IsApprovedDenomination(cfg.Denomination) {
		return nil, shared.NewDomainError("DENOMINATION_NOT_APPROVED",
			fmt.Sprintf("Asset %s is not an approved denomination", cfg.Denomination))
	}

	vault, err := asset.NewVault(cfg.Owner, cfg.Name, cfg.Symbol, cfg.Denomination, r.coordinator.ID, r.ID, cfg.VaultOptions...)
	if err != nil {
		return nil, err
	}

	fees := extension.NewFeeRegistry(r.logger)
	for _, mc := range cfg.Fees {
		m, err := r.catalog.BuildFee(mc.ID, mc.Settings)
		if err != nil {
			return nil, err
		}
		if err := fees.Register(m); err != nil {
			return nil, err
		}
	}
	policies := extension.NewPolicyRegistry(r.logger)
	for _, mc := range cfg.Policies {
		m, err := r.catalog.BuildPolicy(mc.ID, mc.Settings)
		if err != nil {
			return nil, err
		}
		if err := policies.Register(m); err != nil {
			return nil, err
		}
	}

	controller, err := fund.NewController(
		vault, r.oracle, r.router, fees, policies,
		r.clock, r.coordinator.ID, r.sharesActionTimelock, r.logger,
	)
	if err != nil {
		return nil, err
	}
	if err := r.coordinator.RegisterFund(vault, controller); err != nil {
		return nil, err
	}

	r.AddDomainEvent(NewFundCreatedEvent(r, vault.ID, controller.ID, cfg.Owner, cfg.Denomination))
	r.logger.Info("fund created",
		zap.String("release_id", r.ID.String()),
		zap.String("fund_id", vault.ID.String()),
		zap.String("owner", cfg.Owner.String()),
		zap.String("denomination", cfg.Denomination.String()),
	)
	return controller, nil
}

// NewMigrationController builds a replacement controller for an
// existing fund on this release, for use in a signaled migration. The
// controller starts uninitialized; the coordinator activates it when
// the migration executes.
func (r *Release) NewMigrationController(fundID uuid.UUID, feeCfgs, policyCfgs []ModuleConfig) (*fund.Controller, error) {
	if r.status != StatusLive {
		return nil, shared.NewDomainError("RELEASE_NOT_LIVE",
			fmt.Sprintf("Release is %s, controller creation requires live", r.status))
	}
	current, ok := r.coordinator.CurrentController(fundID)
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_FUND", fmt.Sprintf("Fund %s is not registered", fundID))
	}

	fees := extension.NewFeeRegistry(r.logger)
	for _, mc := range feeCfgs {
		m, err := r.catalog.BuildFee(mc.ID, mc.Settings)
		if err != nil {
			return nil, err
		}
		if err := fees.Register(m); err != nil {
			return nil, err
		}
	}
	policies := extension.NewPolicyRegistry(r.logger)
	for _, mc := range policyCfgs {
		m, err := r.catalog.BuildPolicy(mc.ID, mc.Settings)
		if err != nil {
			return nil, err
		}
		if err := policies.Register(m); err != nil {
			return nil, err
		}
	}

	return fund.NewController(
		current.Vault(), r.oracle, r.router, fees, policies,
		r.clock, r.coordinator.ID, r.sharesActionTimelock, r.logger,
	)
}

// RegisterVaultCall registers an owner-call triple on a fund's vault.
// Release owner only; the vault accepts the registration because it
// carries this release's identity.
func (r *Release) RegisterVaultCall(caller uuid.UUID, v *asset.Vault, contract uuid.UUID, method, payloadHash string) error {
	if !r.IsOwner(caller) {
		return shared.ErrUnauthorized
	}
	return v.RegisterAllowedCall(r.ID, contract, method, payloadHash)
}

// DeregisterVaultCall removes an owner-call triple from a fund's vault.
// Release owner only.
func (r *Release) DeregisterVaultCall(caller uuid.UUID, v *asset.Vault, contract uuid.UUID, method string) error {
	if !r.IsOwner(caller) {
		return shared.ErrUnauthorized
	}
	return v.DeregisterAllowedCall(r.ID, contract, method)
}
