// Package models holds the launchpad wire types shared by the mint client and
// the reference API server.
package models

import "time"

// InventoryItem is the client's read-only projection of a server-owned ordinal.
type InventoryItem struct {
	ID            string     `json:"id"`
	OrdinalNumber *int64     `json:"ordinalNumber"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	IsMinted      bool       `json:"isMinted"`
	IsLocked      bool       `json:"isLocked"`
	LockedBy      *string    `json:"lockedBy"`
	LockedUntil   *time.Time `json:"lockedUntil"`
}

// LockActive reports whether the item is locked and the lock has not yet
// passed its expiry at now.
func (i InventoryItem) LockActive(now time.Time) bool {
	if !i.IsLocked {
		return false
	}
	return i.LockedUntil == nil || i.LockedUntil.After(now)
}

// LockExpired reports a lock the server still shows but whose lockedUntil is
// already in the past.
func (i InventoryItem) LockExpired(now time.Time) bool {
	return i.IsLocked && i.LockedUntil != nil && !i.LockedUntil.After(now)
}

// LockedByWallet reports whether wallet is the recorded lock holder.
func (i InventoryItem) LockedByWallet(wallet string) bool {
	return i.IsLocked && wallet != "" && i.LockedBy != nil && *i.LockedBy == wallet
}

// LockedByOther reports an unexpired lock held by anyone but wallet.
func (i InventoryItem) LockedByOther(wallet string, now time.Time) bool {
	return i.LockActive(now) && !i.LockedByWallet(wallet)
}

// Pagination mirrors the ordinals listing metadata.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"perPage"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination derives the page counters for total items.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 1
	}
	if page <= 0 {
		page = 1
	}
	pages := (total + perPage - 1) / perPage
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// OrdinalsPage is the GET /ordinals response.
type OrdinalsPage struct {
	Ordinals   []InventoryItem `json:"ordinals"`
	Pagination Pagination      `json:"pagination"`
}
