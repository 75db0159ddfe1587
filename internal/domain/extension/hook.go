package extension

// Hook is a named lifecycle point at which registered fee and policy
// modules are invoked
type Hook string

const (
	HookContinuous            Hook = "continuous"
	HookPreBuyShares          Hook = "pre_buy_shares"
	HookPostBuyShares         Hook = "post_buy_shares"
	HookPreRedeemShares       Hook = "pre_redeem_shares"
	HookPostCallOnIntegration Hook = "post_call_on_integration"
	HookPreTransferShares     Hook = "pre_transfer_shares"
)

// String returns the string representation of the hook
func (h Hook) String() string {
	return string(h)
}

// IsValid returns true if the hook is a known lifecycle point
func (h Hook) IsValid() bool {
	switch h {
	case HookContinuous, HookPreBuyShares, HookPostBuyShares,
		HookPreRedeemShares, HookPostCallOnIntegration, HookPreTransferShares:
		return true
	default:
		return false
	}
}

// AllHooks returns every known lifecycle hook
func AllHooks() []Hook {
	return []Hook{
		HookContinuous,
		HookPreBuyShares,
		HookPostBuyShares,
		HookPreRedeemShares,
		HookPostCallOnIntegration,
		HookPreTransferShares,
	}
}
