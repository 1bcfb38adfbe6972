package model

// RecentActivity summarizes the latest add/remove/claim for a pool
// inside a lookback window. Entries are nil when nothing matched.
type RecentActivity struct {
	PoolAddress  string  `json:"pool_address"`
	LatestAdd    *string `json:"latest_add,omitempty"`
	LatestRemove *string `json:"latest_remove,omitempty"`
	LatestClaim  *string `json:"latest_claim,omitempty"`
}
