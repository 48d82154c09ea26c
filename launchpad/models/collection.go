package models

import "time"

// MintType selects how ordinals are handed out.
type MintType string

const (
	MintTypeHidden        MintType = "hidden"
	MintTypeChoices       MintType = "choices"
	MintTypeAgentOnly     MintType = "agent_only"
	MintTypeAgentAndHuman MintType = "agent_and_human"
)

// Phase is a time-windowed sales rule set within a collection.
type Phase struct {
	ID                string     `json:"id"`
	PhaseName         string     `json:"phaseName"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           *time.Time `json:"endTime"`
	MintPriceLamports uint64     `json:"mintPriceLamports"`
	MintPriceSats     uint64     `json:"mintPriceSats,omitempty"`
	WhitelistOnly     bool       `json:"whitelistOnly"`
	PhaseAllocation   *int       `json:"phaseAllocation"`
	PhaseMinted       int        `json:"phaseMinted"`
	IsActive          bool       `json:"isActive"`
	IsCompleted       bool       `json:"isCompleted"`
	MaxPerWallet      *int       `json:"maxPerWallet"`
}

// Remaining returns the unminted part of the phase allocation; ok is false
// when the phase has no allocation cap.
func (p Phase) Remaining() (remaining int, ok bool) {
	if p.PhaseAllocation == nil {
		return 0, false
	}
	return Remaining(*p.PhaseAllocation, p.PhaseMinted), true
}

// OpenAt reports whether now falls within the phase window.
func (p Phase) OpenAt(now time.Time) bool {
	if now.Before(p.StartTime) {
		return false
	}
	return p.EndTime == nil || now.Before(*p.EndTime)
}

// Collection is the server-owned aggregate.
type Collection struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Twitter     string   `json:"twitter,omitempty"`
	Discord     string   `json:"discord,omitempty"`
	Website     string   `json:"website,omitempty"`
	TotalSupply int      `json:"totalSupply"`
	TotalMinted int      `json:"totalMinted"`
	MintType    MintType `json:"mintType"`
	Phases      []Phase  `json:"phases"`
}

// ActivePhase returns the first phase flagged active.
func (c Collection) ActivePhase() *Phase {
	for i := range c.Phases {
		if c.Phases[i].IsActive {
			p := c.Phases[i]
			return &p
		}
	}
	return nil
}

// SoldOut reports totalMinted >= totalSupply.
func (c Collection) SoldOut() bool {
	return c.TotalSupply > 0 && c.TotalMinted >= c.TotalSupply
}
