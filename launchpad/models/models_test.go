package models_test

import (
	"testing"
	"time"

	"github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestRemaining_NeverNegative(t *testing.T) {
	tests := []struct {
		limit, minted, want int
	}{
		{2, 0, 2},
		{2, 1, 1},
		{2, 2, 0},
		{2, 5, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.Remaining(tt.limit, tt.minted))
	}
}

func TestNewUserMintStatus(t *testing.T) {
	us := models.NewUserMintStatus(1, intPtr(2))
	if assert.NotNil(t, us.Remaining) {
		assert.Equal(t, 1, *us.Remaining)
	}

	unlimited := models.NewUserMintStatus(7, nil)
	assert.Nil(t, unlimited.Remaining)
}

func TestNewWhitelistStatus(t *testing.T) {
	ws := models.NewWhitelistStatus(true, 3, 4)
	assert.Equal(t, 0, ws.RemainingAllocation)

	notListed := models.NewWhitelistStatus(false, 3, 0)
	assert.Equal(t, 0, notListed.RemainingAllocation)
}

func TestTruncateAddress(t *testing.T) {
	addr := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	assert.Equal(t, "7xKXtg2C...osgAsU", models.TruncateAddress(addr))
	assert.Equal(t, "short", models.TruncateAddress("short"))
}

func TestInventoryItem_LockState(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	owner := "walletA"
	future := now.Add(time.Minute)
	past := now.Add(-time.Second)

	held := models.InventoryItem{ID: "1", IsLocked: true, LockedBy: &owner, LockedUntil: &future}
	assert.True(t, held.LockActive(now))
	assert.True(t, held.LockedByWallet("walletA"))
	assert.False(t, held.LockedByOther("walletA", now))
	assert.True(t, held.LockedByOther("walletB", now))

	expired := models.InventoryItem{ID: "2", IsLocked: true, LockedBy: &owner, LockedUntil: &past}
	assert.False(t, expired.LockActive(now))
	assert.True(t, expired.LockExpired(now))
	assert.False(t, expired.LockedByOther("walletB", now))

	free := models.InventoryItem{ID: "3"}
	assert.False(t, free.LockActive(now))
	assert.False(t, free.LockedByWallet(""))
}

func TestPhase_Remaining(t *testing.T) {
	p := models.Phase{PhaseAllocation: intPtr(100), PhaseMinted: 98}
	r, ok := p.Remaining()
	assert.True(t, ok)
	assert.Equal(t, 2, r)

	_, ok = models.Phase{}.Remaining()
	assert.False(t, ok)
}

func TestCollection_ActivePhaseAndSoldOut(t *testing.T) {
	c := models.Collection{
		TotalSupply: 10,
		TotalMinted: 10,
		Phases: []models.Phase{
			{ID: "wl", IsCompleted: true},
			{ID: "public", IsActive: true},
		},
	}
	assert.Equal(t, "public", c.ActivePhase().ID)
	assert.True(t, c.SoldOut())
}

func TestNewPagination(t *testing.T) {
	p := models.NewPagination(2, 20, 45)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)
}

func TestReserveResponse_Granted(t *testing.T) {
	single := models.ReserveResponse{Ordinal: &models.InventoryItem{ID: "a"}}
	assert.Len(t, single.Granted(), 1)

	multi := models.ReserveResponse{Ordinals: []models.InventoryItem{{ID: "a"}, {ID: "b"}}}
	assert.Len(t, multi.Granted(), 2)
}
