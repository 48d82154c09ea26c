package services_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	wire "github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/pkg/chain"
	"github.com/AmentiAI/solmaker-sub001/pkg/clock"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/repository"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "AliceWa11et1111111111111111111111111111111"
	bob   = "BobWa11et11111111111111111111111111111111"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// ---- mock builder / checker / publisher ----

type mockBuilder struct {
	mu       sync.Mutex
	payer    string
	lamports uint64
	err      error
}

func (m *mockBuilder) Build(_ context.Context, payer string, lamports uint64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payer, m.lamports = payer, lamports
	if m.err != nil {
		return nil, m.err
	}
	return []byte("unsigned:" + payer), nil
}

type mockChecker struct {
	mu        sync.Mutex
	confirmed bool
	err       error
	calls     int
}

func (m *mockChecker) Confirmed(context.Context, string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.confirmed, m.err
}

func (m *mockChecker) set(confirmed bool, err error) {
	m.mu.Lock()
	m.confirmed, m.err = confirmed, err
	m.mu.Unlock()
}

type mockPublisher struct {
	mu     sync.Mutex
	events []models.MintedEvent
}

func (m *mockPublisher) PublishMinted(_ context.Context, e models.MintedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

type mockMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *mockMetrics) RecordCount(_ context.Context, name string, dims map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[name+"/"+dims["CollectionId"]]++
	return nil
}

func (m *mockMetrics) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name+"/col"]
}

// ---- helpers ----

type harness struct {
	svc       services.LaunchpadService
	catalog   *repository.MemoryCatalogRepository
	locks     *repository.MemoryLockStore
	clock     *clock.Manual
	builder   *mockBuilder
	checker   *mockChecker
	publisher *mockPublisher
	metrics   *mockMetrics
	demo      repository.DemoCatalog
	phaseID   string
}

type setupFn func(*repository.DemoCatalog)

func newHarness(t *testing.T, supply int, setups ...setupFn) *harness {
	t.Helper()
	clk := clock.NewManual(epoch)
	demo := repository.NewDemoCatalog("col", supply, wire.MintTypeChoices, 1_000, 3, epoch.Add(-time.Hour))
	for _, fn := range setups {
		fn(&demo)
	}
	catalog := repository.NewMemoryCatalogRepository()
	demo.Load(catalog)
	locks := repository.NewMemoryLockStore(clk)

	h := &harness{
		catalog:   catalog,
		locks:     locks,
		clock:     clk,
		builder:   &mockBuilder{},
		checker:   &mockChecker{confirmed: true},
		publisher: &mockPublisher{},
		metrics:   &mockMetrics{},
		demo:      demo,
		phaseID:   demo.Collection.Phases[0].ID,
	}
	n := 0
	h.svc = services.NewLaunchpadService(catalog, locks, h.builder, h.checker, nil,
		services.WithClock(clk),
		services.WithPublisher(h.publisher),
		services.WithMetrics(h.metrics),
		services.WithRand(rand.New(rand.NewSource(1))),
		services.WithMintAddress(func() string {
			n++
			return fmt.Sprintf("nft-%d", n)
		}),
	)
	return h
}

func (h *harness) itemID(i int) string { return h.demo.Ordinals[i].ID }

func (h *harness) reserve(t *testing.T, wallet, itemID string) *services.ServiceError {
	t.Helper()
	_, svcErr := h.svc.Reserve(context.Background(), "col", wire.ReserveRequest{
		WalletAddress: wallet, PhaseID: h.phaseID, Quantity: 1, ItemID: itemID,
	})
	return svcErr
}

func (h *harness) build(t *testing.T, wallet string, ids ...string) (*wire.BuildMintResponse, *services.ServiceError) {
	t.Helper()
	return h.svc.BuildMint(context.Background(), "col", wire.BuildMintRequest{
		WalletAddress: wallet, PhaseID: h.phaseID, Quantity: len(ids), OrdinalIDs: ids,
	})
}

func whitelistOnly(wallet string, allocation int) setupFn {
	return func(d *repository.DemoCatalog) {
		d.Collection.Phases[0].WhitelistOnly = true
		d.Whitelist = append(d.Whitelist, models.WhitelistEntry{
			PhaseID: d.Collection.Phases[0].ID, WalletAddress: wallet, Allocation: allocation,
		})
	}
}

// ---- tests ----

func TestPoll_AggregatesCountsAndWalletStatus(t *testing.T) {
	h := newHarness(t, 10, whitelistOnly(alice, 2))

	resp, svcErr := h.svc.Poll(context.Background(), "col", alice)
	require.Nil(t, svcErr)
	assert.True(t, resp.Success)
	assert.Equal(t, wire.Counts{TotalSupply: 10, TotalMinted: 0, AvailableCount: 10}, *resp.Counts)
	require.NotNil(t, resp.ActivePhase)
	assert.Equal(t, h.phaseID, resp.ActivePhase.ID)
	require.NotNil(t, resp.UserWhitelistStatus)
	assert.Equal(t, wire.WhitelistStatus{IsWhitelisted: true, Allocation: 2, RemainingAllocation: 2}, *resp.UserWhitelistStatus)
	require.NotNil(t, resp.UserMintStatus)
	assert.Equal(t, 3, *resp.UserMintStatus.Remaining)

	anon, svcErr := h.svc.Poll(context.Background(), "col", "")
	require.Nil(t, svcErr)
	assert.Nil(t, anon.UserMintStatus)
	assert.Nil(t, anon.UserWhitelistStatus)
}

func TestPoll_UnknownCollection(t *testing.T) {
	h := newHarness(t, 1)
	_, svcErr := h.svc.Poll(context.Background(), "nope", "")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
}

func TestReserve_ChosenItemConflicts(t *testing.T) {
	h := newHarness(t, 5)

	require.Nil(t, h.reserve(t, alice, h.itemID(0)))

	svcErr := h.reserve(t, bob, h.itemID(0))
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, "Ordinal is locked by another wallet", svcErr.Message)

	// re-locking an own item extends rather than conflicts
	assert.Nil(t, h.reserve(t, alice, h.itemID(0)))

	page, svcErr := h.svc.ListOrdinals(context.Background(), "col", 1, 10)
	require.Nil(t, svcErr)
	assert.True(t, page.Ordinals[0].LockedByWallet(alice))
	assert.False(t, page.Ordinals[1].IsLocked)
	assert.Equal(t, 5, page.Pagination.Total)
}

func TestReserve_LockExpiresAfterTTL(t *testing.T) {
	h := newHarness(t, 2)
	require.Nil(t, h.reserve(t, alice, h.itemID(0)))

	h.clock.Advance(services.DefaultLockTTL + time.Second)
	assert.Nil(t, h.reserve(t, bob, h.itemID(0)))
}

func TestReserve_EnforcesWalletCap(t *testing.T) {
	h := newHarness(t, 10)

	for i := 0; i < 3; i++ {
		require.Nil(t, h.reserve(t, alice, h.itemID(i)))
	}
	svcErr := h.reserve(t, alice, h.itemID(3))
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "You can lock at most 3 ordinal(s) in this phase", svcErr.Message)
}

func TestReserve_NotWhitelisted(t *testing.T) {
	h := newHarness(t, 5, whitelistOnly(alice, 1))

	svcErr := h.reserve(t, bob, h.itemID(0))
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "Wallet is not whitelisted for this phase", svcErr.Message)
}

func TestReserve_WrongOrClosedPhase(t *testing.T) {
	h := newHarness(t, 5, func(d *repository.DemoCatalog) {
		start := epoch.Add(time.Hour)
		d.Collection.Phases[0].StartTime = start
	})

	svcErr := h.reserve(t, alice, h.itemID(0))
	require.NotNil(t, svcErr)
	assert.Equal(t, "Phase is not open", svcErr.Message)

	_, svcErr = h.svc.Reserve(context.Background(), "col", wire.ReserveRequest{
		WalletAddress: alice, PhaseID: "other", Quantity: 1,
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, "Phase is not active", svcErr.Message)
}

func TestReserve_RandomGrantsDistinctFreeItems(t *testing.T) {
	h := newHarness(t, 6)
	require.Nil(t, h.reserve(t, bob, h.itemID(0)))

	resp, svcErr := h.svc.Reserve(context.Background(), "col", wire.ReserveRequest{
		WalletAddress: alice, PhaseID: h.phaseID, Quantity: 2,
	})
	require.Nil(t, svcErr)
	granted := resp.Granted()
	require.Len(t, granted, 2)
	assert.NotEqual(t, granted[0].ID, granted[1].ID)
	for _, it := range granted {
		assert.NotEqual(t, h.itemID(0), it.ID, "bob's lock must not be handed out")
		assert.True(t, it.LockedByWallet(alice))
	}
}

func TestReserve_RandomClampsAndReusesOwnLocks(t *testing.T) {
	h := newHarness(t, 10)
	require.Nil(t, h.reserve(t, alice, h.itemID(4)))

	resp, svcErr := h.svc.Reserve(context.Background(), "col", wire.ReserveRequest{
		WalletAddress: alice, PhaseID: h.phaseID, Quantity: 8,
	})
	require.Nil(t, svcErr)
	granted := resp.Granted()
	assert.Len(t, granted, 3, "clamped to maxPerWallet")
	assert.Equal(t, h.itemID(4), granted[0].ID, "own lock granted first")
}

func TestReserve_SoldOut(t *testing.T) {
	h := newHarness(t, 2, func(d *repository.DemoCatalog) {
		d.Collection.TotalMinted = 2
	})
	svcErr := h.reserve(t, alice, h.itemID(0))
	require.NotNil(t, svcErr)
	assert.Equal(t, "Collection is sold out", svcErr.Message)
}

func TestRelease_OnlyHolder(t *testing.T) {
	h := newHarness(t, 2)
	require.Nil(t, h.reserve(t, alice, h.itemID(0)))

	svcErr := h.svc.Release(context.Background(), "col", bob, h.itemID(0))
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)

	require.Nil(t, h.svc.Release(context.Background(), "col", alice, h.itemID(0)))
	assert.Nil(t, h.reserve(t, bob, h.itemID(0)))
}

func TestBuildMint_PricesAndRecordsPending(t *testing.T) {
	h := newHarness(t, 5)
	require.Nil(t, h.reserve(t, alice, h.itemID(0)))
	require.Nil(t, h.reserve(t, alice, h.itemID(1)))

	resp, svcErr := h.build(t, alice, h.itemID(0), h.itemID(1))
	require.Nil(t, svcErr)
	assert.Equal(t, "nft-1", resp.NFTMint)

	raw, err := base64.StdEncoding.DecodeString(resp.Transaction)
	require.NoError(t, err)
	assert.Equal(t, "unsigned:"+alice, string(raw))
	assert.EqualValues(t, 2_000, h.builder.lamports)

	mint, err := h.catalog.GetMintByNFT(context.Background(), "nft-1")
	require.NoError(t, err)
	assert.Equal(t, models.MintPending, mint.Status)
	assert.Equal(t, 2, mint.Quantity)
}

func TestBuildMint_RejectsForeignLockAndMismatch(t *testing.T) {
	h := newHarness(t, 5)
	require.Nil(t, h.reserve(t, bob, h.itemID(0)))

	_, svcErr := h.build(t, alice, h.itemID(0))
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)

	_, svcErr = h.svc.BuildMint(context.Background(), "col", wire.BuildMintRequest{
		WalletAddress: alice, PhaseID: h.phaseID, Quantity: 2, OrdinalIDs: []string{h.itemID(1)},
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)

	_, svcErr = h.build(t, alice, h.itemID(1), h.itemID(1))
	require.NotNil(t, svcErr)
	assert.Equal(t, "Duplicate ordinals in request", svcErr.Message)
}

func TestBuildMint_RequiresHeldLock(t *testing.T) {
	h := newHarness(t, 5)

	_, svcErr := h.build(t, alice, h.itemID(2))
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, "Ordinal lock expired", svcErr.Message)

	locks, _ := h.locks.Get(context.Background(), "col", []string{h.itemID(2)})
	assert.Empty(t, locks, "a free ordinal is not locked by building")
	assert.Zero(t, h.metrics.get(services.MetricMintsBuilt))

	// a lock that lapsed between reserve and build is refused the same way
	require.Nil(t, h.reserve(t, alice, h.itemID(3)))
	h.clock.Advance(services.DefaultLockTTL + time.Second)
	_, svcErr = h.build(t, alice, h.itemID(3))
	require.NotNil(t, svcErr)
	assert.Equal(t, "Ordinal lock expired", svcErr.Message)

	// one held and one missing fails the whole build
	require.Nil(t, h.reserve(t, alice, h.itemID(0)))
	_, svcErr = h.build(t, alice, h.itemID(0), h.itemID(1))
	require.NotNil(t, svcErr)
	assert.Equal(t, "Ordinal lock expired", svcErr.Message)
	locks, _ = h.locks.Get(context.Background(), "col", []string{h.itemID(1)})
	assert.Empty(t, locks)
}

func TestConfirmMint_SettlesAndPublishes(t *testing.T) {
	h := newHarness(t, 5)
	require.Nil(t, h.reserve(t, alice, h.itemID(0)))
	build, svcErr := h.build(t, alice, h.itemID(0))
	require.Nil(t, svcErr)

	resp, svcErr := h.svc.ConfirmMint(context.Background(), "col", wire.ConfirmMintRequest{
		Signature: "sig-1", NFTMintAddress: build.NFTMint, WalletAddress: alice,
	})
	require.Nil(t, svcErr)
	assert.True(t, resp.Confirmed)

	poll, _ := h.svc.Poll(context.Background(), "col", alice)
	assert.Equal(t, 1, poll.Counts.TotalMinted)
	assert.Equal(t, 1, poll.UserMintStatus.MintedCount)
	assert.Equal(t, 1, poll.ActivePhase.PhaseMinted)

	locks, _ := h.locks.Get(context.Background(), "col", []string{h.itemID(0)})
	assert.Empty(t, locks, "locks released once minted")

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, "sig-1", h.publisher.events[0].Signature)
	assert.Equal(t, 1, h.metrics.get(services.MetricOrdinalsLocked))
	assert.Equal(t, 1, h.metrics.get(services.MetricMintsBuilt))
	assert.Equal(t, 1, h.metrics.get(services.MetricMintsConfirmed))
	assert.Equal(t, []string{h.itemID(0)}, h.publisher.events[0].OrdinalIDs)

	// minted ordinals cannot be reserved again
	svcErr = h.reserve(t, bob, h.itemID(0))
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, "Ordinal has already been minted", svcErr.Message)

	// repeated status checks stay confirmed without another settle
	again, svcErr := h.svc.ConfirmStatus(context.Background(), "col", "sig-1")
	require.Nil(t, svcErr)
	assert.True(t, again.Confirmed)
	assert.Len(t, h.publisher.events, 1)
}

func TestConfirmStatus_PendingThenConfirmed(t *testing.T) {
	h := newHarness(t, 5)
	h.checker.set(false, nil)
	require.Nil(t, h.reserve(t, alice, h.itemID(0)))
	build, _ := h.build(t, alice, h.itemID(0))

	resp, svcErr := h.svc.ConfirmMint(context.Background(), "col", wire.ConfirmMintRequest{
		Signature: "sig-2", NFTMintAddress: build.NFTMint, WalletAddress: alice,
	})
	require.Nil(t, svcErr)
	assert.False(t, resp.Confirmed)

	h.checker.set(true, nil)
	resp, svcErr = h.svc.ConfirmStatus(context.Background(), "col", "sig-2")
	require.Nil(t, svcErr)
	assert.True(t, resp.Confirmed)
}

func TestConfirmMint_FailedOnChain(t *testing.T) {
	h := newHarness(t, 5)
	h.checker.set(false, fmt.Errorf("%w: InstructionError", chain.ErrTransactionFailed))
	require.Nil(t, h.reserve(t, alice, h.itemID(0)))
	build, _ := h.build(t, alice, h.itemID(0))

	_, svcErr := h.svc.ConfirmMint(context.Background(), "col", wire.ConfirmMintRequest{
		Signature: "sig-3", NFTMintAddress: build.NFTMint, WalletAddress: alice,
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.StatusCode)

	locks, _ := h.locks.Get(context.Background(), "col", []string{h.itemID(0)})
	assert.Empty(t, locks)

	_, svcErr = h.svc.ConfirmStatus(context.Background(), "col", "sig-3")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.StatusCode)
	assert.Empty(t, h.publisher.events)
	assert.Equal(t, 1, h.metrics.get(services.MetricMintsFailed))
	assert.Zero(t, h.metrics.get(services.MetricMintsConfirmed))
}

func TestConfirmMint_OtherWallet(t *testing.T) {
	h := newHarness(t, 5)
	require.Nil(t, h.reserve(t, alice, h.itemID(0)))
	build, _ := h.build(t, alice, h.itemID(0))

	_, svcErr := h.svc.ConfirmMint(context.Background(), "col", wire.ConfirmMintRequest{
		Signature: "sig-4", NFTMintAddress: build.NFTMint, WalletAddress: bob,
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.StatusCode)
}

func TestWhitelistStatus_CountsConfirmedMints(t *testing.T) {
	h := newHarness(t, 5, whitelistOnly(alice, 2))
	require.Nil(t, h.reserve(t, alice, h.itemID(0)))
	build, _ := h.build(t, alice, h.itemID(0))
	_, svcErr := h.svc.ConfirmMint(context.Background(), "col", wire.ConfirmMintRequest{
		Signature: "sig-5", NFTMintAddress: build.NFTMint, WalletAddress: alice,
	})
	require.Nil(t, svcErr)

	ws, svcErr := h.svc.WhitelistStatus(context.Background(), "col", alice, h.phaseID)
	require.Nil(t, svcErr)
	assert.Equal(t, wire.WhitelistStatus{IsWhitelisted: true, Allocation: 2, MintedCount: 1, RemainingAllocation: 1}, *ws)

	ws, svcErr = h.svc.WhitelistStatus(context.Background(), "col", bob, h.phaseID)
	require.Nil(t, svcErr)
	assert.False(t, ws.IsWhitelisted)

	_, svcErr = h.svc.WhitelistStatus(context.Background(), "col", bob, "missing")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
}

func TestReserve_ConcurrentWalletsNeverShareAnItem(t *testing.T) {
	h := newHarness(t, 1)
	target := h.itemID(0)

	var wg sync.WaitGroup
	results := make([]*services.ServiceError, 2)
	for i, w := range []string{alice, bob} {
		wg.Add(1)
		go func(i int, w string) {
			defer wg.Done()
			results[i] = h.reserve(t, w, target)
		}(i, w)
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r == nil {
			wins++
			continue
		}
		assert.Equal(t, http.StatusConflict, r.StatusCode)
	}
	assert.Equal(t, 1, wins)
}
