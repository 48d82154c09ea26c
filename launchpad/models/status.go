package models

// WhitelistStatus is the per-wallet, per-phase whitelist view.
type WhitelistStatus struct {
	IsWhitelisted       bool `json:"isWhitelisted"`
	Allocation          int  `json:"allocation"`
	MintedCount         int  `json:"mintedCount"`
	RemainingAllocation int  `json:"remainingAllocation"`
}

// NewWhitelistStatus fills RemainingAllocation from allocation and minted.
func NewWhitelistStatus(whitelisted bool, allocation, minted int) WhitelistStatus {
	ws := WhitelistStatus{
		IsWhitelisted: whitelisted,
		Allocation:    allocation,
		MintedCount:   minted,
	}
	if whitelisted {
		ws.RemainingAllocation = Remaining(allocation, minted)
	}
	return ws
}

// UserMintStatus is the per-wallet view of the active phase. A nil
// MaxPerWallet means unlimited, in which case Remaining is nil too.
type UserMintStatus struct {
	MintedCount  int  `json:"mintedCount"`
	MaxPerWallet *int `json:"maxPerWallet"`
	Remaining    *int `json:"remaining"`
}

// NewUserMintStatus fills Remaining from the wallet cap.
func NewUserMintStatus(minted int, maxPerWallet *int) UserMintStatus {
	us := UserMintStatus{MintedCount: minted, MaxPerWallet: maxPerWallet}
	if maxPerWallet != nil {
		r := Remaining(*maxPerWallet, minted)
		us.Remaining = &r
	}
	return us
}

// Remaining is max(0, limit - minted).
func Remaining(limit, minted int) int {
	if minted >= limit {
		return 0
	}
	return limit - minted
}

// TruncateAddress shortens a wallet address to {first8}...{last6}.
func TruncateAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-6:]
}
