package poller

import (
	"time"

	"github.com/AmentiAI/solmaker-sub001/launchpad/models"
)

// State is the merged live view of a collection for one wallet.
type State struct {
	Counts      models.Counts
	HasCounts   bool
	ActivePhase *models.Phase
	Whitelist   *models.WhitelistStatus
	UserMint    *models.UserMintStatus

	// Optimistic is the minted quantity layered over the last authoritative
	// poll. Zero once a poll has replaced the overlay.
	Optimistic int
}

// SoldOut reports totalMinted >= totalSupply on the latest polled value.
func (s State) SoldOut() bool {
	return s.HasCounts && s.Counts.TotalSupply > 0 && s.Counts.TotalMinted >= s.Counts.TotalSupply
}

func (s State) clone() State {
	out := s
	if s.ActivePhase != nil {
		p := *s.ActivePhase
		out.ActivePhase = &p
	}
	if s.Whitelist != nil {
		w := *s.Whitelist
		out.Whitelist = &w
	}
	if s.UserMint != nil {
		u := *s.UserMint
		if s.UserMint.Remaining != nil {
			r := *s.UserMint.Remaining
			u.Remaining = &r
		}
		out.UserMint = &u
	}
	return out
}

// overlay is the optimistic mint delta. It is dropped by the first poll
// issued after afterSeq.
type overlay struct {
	quantity int
	afterSeq uint64
}

func (o overlay) apply(s State) State {
	if o.quantity == 0 {
		return s
	}
	q := o.quantity
	s.Counts.TotalMinted += q
	s.Counts.AvailableCount = max(0, s.Counts.AvailableCount-q)
	if s.ActivePhase != nil {
		s.ActivePhase.PhaseMinted += q
	}
	if s.Whitelist != nil {
		s.Whitelist.MintedCount += q
		s.Whitelist.RemainingAllocation = max(0, s.Whitelist.RemainingAllocation-q)
	}
	if s.UserMint != nil {
		s.UserMint.MintedCount += q
		if s.UserMint.Remaining != nil {
			r := max(0, *s.UserMint.Remaining-q)
			s.UserMint.Remaining = &r
		}
	}
	s.Optimistic = q
	return s
}

func samePhase(a, b *models.Phase) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID &&
		a.PhaseName == b.PhaseName &&
		a.StartTime.Equal(b.StartTime) &&
		sameTime(a.EndTime, b.EndTime) &&
		a.MintPriceLamports == b.MintPriceLamports &&
		a.MintPriceSats == b.MintPriceSats &&
		a.WhitelistOnly == b.WhitelistOnly &&
		sameInt(a.PhaseAllocation, b.PhaseAllocation) &&
		a.PhaseMinted == b.PhaseMinted &&
		a.IsActive == b.IsActive &&
		a.IsCompleted == b.IsCompleted &&
		sameInt(a.MaxPerWallet, b.MaxPerWallet)
}

func sameWhitelist(a, b *models.WhitelistStatus) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameUserMint(a, b *models.UserMintStatus) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.MintedCount == b.MintedCount &&
		sameInt(a.MaxPerWallet, b.MaxPerWallet) &&
		sameInt(a.Remaining, b.Remaining)
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
