package extension

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/openfund/backend/internal/domain/shared"
	"github.com/openfund/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ModuleSettings is the opaque per-fund settings blob a module is
// constructed from at fund setup
type ModuleSettings map[string]string

// FeeFactory builds a fee module from its settings
type FeeFactory func(settings ModuleSettings) (FeeModule, error)

// PolicyFactory builds a policy module from its settings
type PolicyFactory func(settings ModuleSettings) (PolicyModule, error)

// Catalog is the capability table of fee and policy module factories
// available to a release. Fund owners pick modules by identifier.
type Catalog struct {
	feeFactories    map[string]FeeFactory
	policyFactories map[string]PolicyFactory
}

// NewCatalog creates an empty module catalog
func NewCatalog() *Catalog {
	return &Catalog{
		feeFactories:    make(map[string]FeeFactory),
		policyFactories: make(map[string]PolicyFactory),
	}
}

// RegisterFeeFactory adds a fee module factory under an identifier
func (c *Catalog) RegisterFeeFactory(id string, f FeeFactory) {
	c.feeFactories[id] = f
}

// RegisterPolicyFactory adds a policy module factory under an identifier
func (c *Catalog) RegisterPolicyFactory(id string, f PolicyFactory) {
	c.policyFactories[id] = f
}

// BuildFee constructs a fee module by identifier
func (c *Catalog) BuildFee(id string, settings ModuleSettings) (FeeModule, error) {
	f, ok := c.feeFactories[id]
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_MODULE", fmt.Sprintf("Unknown fee module %q", id))
	}
	return f(settings)
}

// BuildPolicy constructs a policy module by identifier
func (c *Catalog) BuildPolicy(id string, settings ModuleSettings) (PolicyModule, error) {
	f, ok := c.policyFactories[id]
	if !ok {
		return nil, shared.NewDomainError("UNKNOWN_MODULE", fmt.Sprintf("Unknown policy module %q", id))
	}
	return f(settings)
}

// DefaultCatalog returns a catalog with the built-in fee and policy
// modules registered
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	c.RegisterFeeFactory("entrance-fee", func(s ModuleSettings) (FeeModule, error) {
		rate, err := settingsRate(s, "rate")
		if err != nil {
			return nil, err
		}
		burn := s["settlement"] != string(SettlementMint)
		var recipient uuid.UUID
		if !burn {
			if recipient, err = settingsUUID(s, "recipient"); err != nil {
				return nil, err
			}
		}
		return NewEntranceFee(rate, recipient, burn)
	})

	c.RegisterFeeFactory("management-fee", func(s ModuleSettings) (FeeModule, error) {
		rate, err := settingsRate(s, "rate")
		if err != nil {
			return nil, err
		}
		recipient, err := settingsUUID(s, "recipient")
		if err != nil {
			return nil, err
		}
		return NewManagementFee(rate, recipient)
	})

	c.RegisterFeeFactory("performance-fee", func(s ModuleSettings) (FeeModule, error) {
		rate, err := settingsRate(s, "rate")
		if err != nil {
			return nil, err
		}
		recipient, err := settingsUUID(s, "recipient")
		if err != nil {
			return nil, err
		}
		return NewPerformanceFee(rate, recipient)
	})

	c.RegisterPolicyFactory("asset-whitelist", func(s ModuleSettings) (PolicyModule, error) {
		raw := strings.Split(s["assets"], ",")
		assets := make([]valueobject.AssetID, 0, len(raw))
		for _, a := range raw {
			if a = strings.TrimSpace(a); a != "" {
				assets = append(assets, valueobject.AssetID(a))
			}
		}
		return NewAssetWhitelist(assets)
	})

	c.RegisterPolicyFactory("investment-limits", func(s ModuleSettings) (PolicyModule, error) {
		min := decimal.Zero
		max := decimal.Zero
		var err error
		if raw, ok := s["min"]; ok {
			if min, err = decimal.NewFromString(raw); err != nil {
				return nil, shared.NewDomainError("INVALID_SETTINGS", fmt.Sprintf("Invalid min: %v", err))
			}
		}
		if raw, ok := s["max"]; ok {
			if max, err = decimal.NewFromString(raw); err != nil {
				return nil, shared.NewDomainError("INVALID_SETTINGS", fmt.Sprintf("Invalid max: %v", err))
			}
		}
		return NewInvestmentLimits(min, max)
	})

	c.RegisterPolicyFactory("holder-whitelist", func(s ModuleSettings) (PolicyModule, error) {
		raw := strings.Split(s["holders"], ",")
		holders := make([]uuid.UUID, 0, len(raw))
		for _, h := range raw {
			if h = strings.TrimSpace(h); h != "" {
				id, err := uuid.Parse(h)
				if err != nil {
					return nil, shared.NewDomainError("INVALID_SETTINGS", fmt.Sprintf("Invalid holder id %q", h))
				}
				holders = append(holders, id)
			}
		}
		return NewHolderWhitelist(holders)
	})

	return c
}

func settingsRate(s ModuleSettings, key string) (decimal.Decimal, error) {
	raw, ok := s[key]
	if !ok {
		return decimal.Zero, shared.NewDomainError("INVALID_SETTINGS", fmt.Sprintf("Missing setting %q", key))
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, shared.NewDomainError("INVALID_SETTINGS", fmt.Sprintf("Invalid %s: %v", key, err))
	}
	return rate, nil
}

func settingsUUID(s ModuleSettings, key string) (uuid.UUID, error) {
	raw, ok := s[key]
	if !ok {
		return uuid.Nil, shared.NewDomainError("INVALID_SETTINGS", fmt.Sprintf("Missing setting %q", key))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.NewDomainError("INVALID_SETTINGS", fmt.Sprintf("Invalid %s: %v", key, err))
	}
	return id, nil
}
