package risk

// NetworkAdvisor exposes a read-only view of balance currently flagged
// in-transit by an external rebalancer collaborator. Position Limits
// consults it, when present, to avoid counting funds that are mid-transfer
// as available exposure headroom. The core never initiates or awaits a
// transfer itself (rebalancing is out of scope, see spec.md §1).
type NetworkAdvisor interface {
	// WithdrawableBalanceUSD returns the portion of an asset's balance on
	// an exchange that is not currently flagged in-transit.
	WithdrawableBalanceUSD(exchange, asset string, totalUSD float64) float64
}

// NoOpNetworkAdvisor is the default: nothing is ever in-transit, so the
// full balance is always considered withdrawable/available.
type NoOpNetworkAdvisor struct{}

func (NoOpNetworkAdvisor) WithdrawableBalanceUSD(_, _ string, totalUSD float64) float64 {
	return totalUSD
}
