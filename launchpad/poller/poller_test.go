package poller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AmentiAI/solmaker-sub001/launchpad/guard"
	"github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/launchpad/poller"
	"github.com/AmentiAI/solmaker-sub001/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake source ----

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*models.PollResponse, error)
}

func (f *fakeSource) Poll(_ context.Context, _ string) (*models.PollResponse, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call)
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ---- helpers ----

func intPtr(v int) *int { return &v }

func counts(minted int) *models.PollResponse {
	return &models.PollResponse{
		Success: true,
		Counts:  &models.Counts{TotalSupply: 10, TotalMinted: minted, AvailableCount: 10 - minted},
	}
}

func full(minted, walletMinted int) *models.PollResponse {
	resp := counts(minted)
	resp.ActivePhase = &models.Phase{ID: "public", PhaseName: "Public", IsActive: true, MaxPerWallet: intPtr(2), PhaseMinted: minted}
	us := models.NewUserMintStatus(walletMinted, intPtr(2))
	resp.UserMintStatus = &us
	return resp
}

func newScope() *guard.Scope {
	return guard.NewScope(context.Background(), "/launchpad/col", guard.NewRouter("/launchpad/col"))
}

// ---- tests ----

func TestPoll_NotifiesOnlyWhenSomethingChanged(t *testing.T) {
	src := &fakeSource{fn: func(int) (*models.PollResponse, error) { return full(4, 0), nil }}
	notified := 0
	p := poller.New(src, newScope(), poller.OnChange(func(poller.State) { notified++ }))

	assert.True(t, p.Poll(context.Background()))
	assert.False(t, p.Poll(context.Background()))
	assert.Equal(t, 1, notified)
	assert.Equal(t, 4, p.Snapshot().Counts.TotalMinted)
}

func TestPoll_AbsentSectionsKeepLocalState(t *testing.T) {
	src := &fakeSource{fn: func(call int) (*models.PollResponse, error) {
		if call == 1 {
			return full(4, 1), nil
		}
		return counts(5), nil
	}}
	p := poller.New(src, newScope())

	p.Poll(context.Background())
	p.Poll(context.Background())

	s := p.Snapshot()
	assert.Equal(t, 5, s.Counts.TotalMinted)
	require.NotNil(t, s.ActivePhase)
	assert.Equal(t, "public", s.ActivePhase.ID)
	require.NotNil(t, s.UserMint)
	assert.Equal(t, 1, s.UserMint.MintedCount)
}

func TestPoll_DiscardsOlderResponseArrivingLate(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{fn: func(call int) (*models.PollResponse, error) {
		if call == 1 {
			close(started)
			<-release
			return counts(3), nil
		}
		return counts(5), nil
	}}
	p := poller.New(src, newScope())

	lateResult := make(chan bool)
	go func() { lateResult <- p.Poll(context.Background()) }()
	<-started

	assert.True(t, p.Poll(context.Background()))
	close(release)

	assert.False(t, <-lateResult)
	assert.Equal(t, 5, p.Snapshot().Counts.TotalMinted)
}

func TestPoll_ObservedTotalMintedIsNonDecreasing(t *testing.T) {
	releases := []chan struct{}{make(chan struct{}), make(chan struct{}), make(chan struct{})}
	started := make(chan int, 3)
	src := &fakeSource{fn: func(call int) (*models.PollResponse, error) {
		started <- call
		<-releases[call-1]
		return counts(call + 2), nil
	}}

	var seen []int
	p := poller.New(src, newScope(), poller.OnChange(func(s poller.State) {
		seen = append(seen, s.Counts.TotalMinted)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Poll(context.Background())
		}()
		<-started
	}
	// settle newest first
	close(releases[2])
	close(releases[0])
	close(releases[1])
	wg.Wait()

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, 5, p.Snapshot().Counts.TotalMinted)
}

func TestOptimisticOverlay_ReplacedByNextPoll(t *testing.T) {
	src := &fakeSource{fn: func(call int) (*models.PollResponse, error) {
		if call == 1 {
			return full(4, 0), nil
		}
		return full(5, 1), nil
	}}
	p := poller.New(src, newScope())
	p.Poll(context.Background())

	s := p.ApplyOptimisticMint(2)
	assert.Equal(t, 6, s.Counts.TotalMinted)
	assert.Equal(t, 2, s.Optimistic)
	require.NotNil(t, s.UserMint.Remaining)
	assert.Equal(t, 0, *s.UserMint.Remaining)

	assert.True(t, p.Poll(context.Background()))
	s = p.Snapshot()
	assert.Equal(t, 5, s.Counts.TotalMinted)
	assert.Zero(t, s.Optimistic)
	assert.Equal(t, 1, *s.UserMint.Remaining)
}

func TestOptimisticOverlay_SurvivesPollIssuedBeforeIt(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{fn: func(call int) (*models.PollResponse, error) {
		if call == 1 {
			return counts(4), nil
		}
		close(started)
		<-release
		return counts(4), nil
	}}
	p := poller.New(src, newScope())
	p.Poll(context.Background())

	done := make(chan struct{})
	go func() {
		p.Poll(context.Background())
		close(done)
	}()
	<-started
	p.ApplyOptimisticMint(1)
	close(release)
	<-done

	s := p.Snapshot()
	assert.Equal(t, 5, s.Counts.TotalMinted)
	assert.Equal(t, 1, s.Optimistic)
}

func TestPoll_NoMutationAfterNavigateAway(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{fn: func(call int) (*models.PollResponse, error) {
		close(started)
		<-release
		return full(7, 1), nil
	}}
	scope := newScope()
	setterCalls := 0
	p := poller.New(src, scope, poller.OnChange(func(poller.State) { setterCalls++ }))

	done := make(chan bool)
	go func() { done <- p.Poll(context.Background()) }()
	<-started
	scope.NavigateAway()
	close(release)

	assert.False(t, <-done)
	assert.Zero(t, setterCalls)
	assert.False(t, p.Snapshot().HasCounts)
}

func TestPoll_FailuresAreSwallowed(t *testing.T) {
	src := &fakeSource{fn: func(call int) (*models.PollResponse, error) {
		switch call {
		case 1:
			return nil, errors.New("connection reset")
		case 2:
			return &models.PollResponse{Success: false}, nil
		default:
			return counts(2), nil
		}
	}}
	p := poller.New(src, newScope())

	assert.False(t, p.Poll(context.Background()))
	assert.False(t, p.Poll(context.Background()))
	assert.True(t, p.Poll(context.Background()))
	assert.Equal(t, 2, p.Snapshot().Counts.TotalMinted)
}

func TestNextInterval_Adaptive(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	src := &fakeSource{fn: func(int) (*models.PollResponse, error) { return counts(1), nil }}
	p := poller.New(src, newScope(), poller.WithClock(clk))

	assert.Equal(t, 5*time.Second, p.NextInterval())
	assert.Equal(t, 7500*time.Millisecond, p.NextInterval())
	assert.Equal(t, 11250*time.Millisecond, p.NextInterval())
	assert.Equal(t, 15*time.Second, p.NextInterval())
	assert.Equal(t, 15*time.Second, p.NextInterval())

	p.SetMintInFlight(true)
	assert.Equal(t, 2*time.Second, p.NextInterval())
	p.SetMintInFlight(false)

	p.ApplyOptimisticMint(1)
	assert.Equal(t, 3*time.Second, p.NextInterval())

	clk.Advance(time.Minute)
	assert.Equal(t, 5*time.Second, p.NextInterval())
}

func TestNextInterval_ShortensWhenSupplyMoves(t *testing.T) {
	src := &fakeSource{fn: func(call int) (*models.PollResponse, error) { return counts(call), nil }}
	p := poller.New(src, newScope())

	p.Poll(context.Background())
	assert.Equal(t, 5*time.Second, p.NextInterval())
	p.Poll(context.Background())
	assert.Equal(t, 3*time.Second, p.NextInterval())
}

func TestRun_StopsOnNavigateAway(t *testing.T) {
	src := &fakeSource{fn: func(int) (*models.PollResponse, error) { return counts(1), nil }}
	scope := newScope()
	iv := poller.Intervals{InFlight: time.Millisecond, Active: time.Millisecond, RecentMint: time.Millisecond, Idle: time.Millisecond, IdleMax: time.Millisecond, Backoff: 1}
	p := poller.New(src, scope, poller.WithIntervals(iv))

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return src.Calls() >= 3 }, time.Second, time.Millisecond)
	scope.NavigateAway()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after navigate away")
	}
	calls := src.Calls()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, calls, src.Calls())
}

func TestState_SoldOut(t *testing.T) {
	s := poller.State{HasCounts: true, Counts: models.Counts{TotalSupply: 10, TotalMinted: 10}}
	assert.True(t, s.SoldOut())
	assert.False(t, poller.State{}.SoldOut())
}
