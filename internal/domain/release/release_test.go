package release

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/extension"
	"github.com/openfund/backend/internal/domain/fund"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/openfund/backend/internal/domain/valuation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDenom = valueobject.AssetID("USDC")

type releaseFixture struct {
	release     *Release
	coordinator *Coordinator
	clock       *shared.FixedClock
	owner       uuid.UUID
}

func newLiveRelease(t *testing.T, migrationTimelock time.Duration) *releaseFixture {
	t.Helper()
	clock := shared.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	coordinator, err := NewCoordinator(migrationTimelock, clock, nil)
	require.NoError(t, err)

	owner := uuid.New()
	rel, err := NewRelease(owner, coordinator, nil, nil, valuation.NewFixedRateOracle(), clock, 0, nil)
	require.NoError(t, err)
	require.NoError(t, rel.SetStatus(owner, StatusLive))
	require.NoError(t, rel.ApproveDenomination(owner, testDenom))

	return &releaseFixture{
		release:     rel,
		coordinator: coordinator,
		clock:       clock,
		owner:       owner,
	}
}

func (f *releaseFixture) createFund(t *testing.T) (*fund.Controller, uuid.UUID) {
	t.Helper()
	fundOwner := uuid.New()
	ctrl, err := f.release.CreateFund(FundConfig{
		Owner:        fundOwner,
		Name:         "Alpha Fund",
		Symbol:       "ALPHA",
		Denomination: testDenom,
	})
	require.NoError(t, err)
	return ctrl, fundOwner
}

func TestNewRelease(t *testing.T) {
	clock := shared.NewFixedClock(time.Now())
	coordinator, err := NewCoordinator(time.Hour, clock, nil)
	require.NoError(t, err)
	oracle := valuation.NewFixedRateOracle()

	t.Run("starts in pre-launch", func(t *testing.T) {
		rel, err := NewRelease(uuid.New(), coordinator, nil, nil, oracle, clock, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusPreLaunch, rel.Status())
	})

	t.Run("requires an owner", func(t *testing.T) {
		_, err := NewRelease(uuid.Nil, coordinator, nil, nil, oracle, clock, 0, nil)
		require.Error(t, err)
	})

	t.Run("requires a coordinator", func(t *testing.T) {
		_, err := NewRelease(uuid.New(), nil, nil, nil, oracle, clock, 0, nil)
		require.Error(t, err)
	})

	t.Run("requires an oracle", func(t *testing.T) {
		_, err := NewRelease(uuid.New(), coordinator, nil, nil, nil, clock, 0, nil)
		require.Error(t, err)
	})

	t.Run("rejects a negative timelock", func(t *testing.T) {
		_, err := NewRelease(uuid.New(), coordinator, nil, nil, oracle, clock, -time.Second, nil)
		require.Error(t, err)
	})
}

func TestReleaseStatus(t *testing.T) {
	newPreLaunch := func(t *testing.T) (*Release, uuid.UUID) {
		clock := shared.NewFixedClock(time.Now())
		coordinator, err := NewCoordinator(time.Hour, clock, nil)
		require.NoError(t, err)
		owner := uuid.New()
		rel, err := NewRelease(owner, coordinator, nil, nil, valuation.NewFixedRateOracle(), clock, 0, nil)
		require.NoError(t, err)
		return rel, owner
	}

	t.Run("pre-launch can only go live", func(t *testing.T) {
		rel, owner := newPreLaunch(t)
		err := rel.SetStatus(owner, StatusPaused)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot transition")

		require.NoError(t, rel.SetStatus(owner, StatusLive))
		assert.Equal(t, StatusLive, rel.Status())
	})

	t.Run("live and paused toggle", func(t *testing.T) {
		rel, owner := newPreLaunch(t)
		require.NoError(t, rel.SetStatus(owner, StatusLive))
		require.NoError(t, rel.SetStatus(owner, StatusPaused))
		require.NoError(t, rel.SetStatus(owner, StatusLive))

		assert.Error(t, rel.SetStatus(owner, StatusLive))
	})

	t.Run("only the owner may transition", func(t *testing.T) {
		rel, _ := newPreLaunch(t)
		assert.ErrorIs(t, rel.SetStatus(uuid.New(), StatusLive), shared.ErrUnauthorized)
	})
}

func TestApproveDenomination(t *testing.T) {
	f := newLiveRelease(t, time.Hour)

	t.Run("owner approves assets", func(t *testing.T) {
		weth := valueobject.AssetID("WETH")
		assert.False(t, f.release.IsApprovedDenomination(weth))
		require.NoError(t, f.release.ApproveDenomination(f.owner, weth))
		assert.True(t, f.release.IsApprovedDenomination(weth))
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		err := f.release.ApproveDenomination(uuid.New(), valueobject.AssetID("DAI"))
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("empty asset is rejected", func(t *testing.T) {
		require.Error(t, f.release.ApproveDenomination(f.owner, ""))
	})
}

func TestCreateFund(t *testing.T) {
	t.Run("requires the release to be live", func(t *testing.T) {
		clock := shared.NewFixedClock(time.Now())
		coordinator, err := NewCoordinator(time.Hour, clock, nil)
		require.NoError(t, err)
		owner := uuid.New()
		rel, err := NewRelease(owner, coordinator, nil, nil, valuation.NewFixedRateOracle(), clock, 0, nil)
		require.NoError(t, err)
		require.NoError(t, rel.ApproveDenomination(owner, testDenom))

		_, err = rel.CreateFund(FundConfig{
			Owner:        uuid.New(),
			Name:         "Alpha Fund",
			Symbol:       "ALPHA",
			Denomination: testDenom,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires live")
	})

	t.Run("requires an approved denomination", func(t *testing.T) {
		f := newLiveRelease(t, time.Hour)
		_, err := f.release.CreateFund(FundConfig{
			Owner:        uuid.New(),
			Name:         "Alpha Fund",
			Symbol:       "ALPHA",
			Denomination: valueobject.AssetID("SHIB"),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not an approved denomination")
	})

	t.Run("wires the controller as the vault accessor and activates it", func(t *testing.T) {
		f := newLiveRelease(t, time.Hour)
		ctrl, _ := f.createFund(t)

		assert.Equal(t, fund.StateActive, ctrl.State())
		assert.Equal(t, ctrl.ID, ctrl.Vault().AccessorID())

		bound, ok := f.coordinator.CurrentController(ctrl.FundID())
		require.True(t, ok)
		assert.Equal(t, ctrl.ID, bound.ID)
	})

	t.Run("builds configured fee and policy modules from the catalog", func(t *testing.T) {
		f := newLiveRelease(t, time.Hour)
		ctrl, err := f.release.CreateFund(FundConfig{
			Owner:        uuid.New(),
			Name:         "Alpha Fund",
			Symbol:       "ALPHA",
			Denomination: testDenom,
			Fees: []ModuleConfig{
				{ID: "entrance-fee", Settings: extension.ModuleSettings{"rate": "0.05"}},
			},
			Policies: []ModuleConfig{
				{ID: "investment-limits", Settings: extension.ModuleSettings{"min": "10"}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"entrance-fee"}, ctrl.Fees().ModuleIDs())
		assert.Equal(t, []string{"investment-limits"}, ctrl.Policies().ModuleIDs())
	})

	t.Run("unknown module identifiers fail fund creation", func(t *testing.T) {
		f := newLiveRelease(t, time.Hour)
		_, err := f.release.CreateFund(FundConfig{
			Owner:        uuid.New(),
			Name:         "Alpha Fund",
			Symbol:       "ALPHA",
			Denomination: testDenom,
			Fees:         []ModuleConfig{{ID: "exit-fee"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown fee module")
	})
}

func TestNewMigrationController(t *testing.T) {
	t.Run("builds an uninitialized controller over the same vault", func(t *testing.T) {
		f := newLiveRelease(t, time.Hour)
		ctrl, _ := f.createFund(t)

		next, err := f.release.NewMigrationController(ctrl.FundID(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, fund.StateUninitialized, next.State())
		assert.Same(t, ctrl.Vault(), next.Vault())
	})

	t.Run("unknown fund is rejected", func(t *testing.T) {
		f := newLiveRelease(t, time.Hour)
		_, err := f.release.NewMigrationController(uuid.New(), nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not registered")
	})
}

func TestRegisterVaultCall(t *testing.T) {
	t.Run("registered calls become invokable by the fund owner", func(t *testing.T) {
		f := newLiveRelease(t, time.Hour)
		ctrl, fundOwner := f.createFund(t)
		v := ctrl.Vault()
		contract := uuid.New()

		require.NoError(t, f.release.RegisterVaultCall(f.owner, v, contract, "harvest", ""))
		assert.NoError(t, v.CallOnContract(fundOwner, contract, "harvest", nil))

		require.NoError(t, f.release.DeregisterVaultCall(f.owner, v, contract, "harvest"))
		assert.Error(t, v.CallOnContract(fundOwner, contract, "harvest", nil))
	})

	t.Run("only the release owner registers calls", func(t *testing.T) {
		f := newLiveRelease(t, time.Hour)
		ctrl, _ := f.createFund(t)

		err := f.release.RegisterVaultCall(uuid.New(), ctrl.Vault(), uuid.New(), "harvest", "")
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}
