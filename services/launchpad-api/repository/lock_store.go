package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AmentiAI/solmaker-sub001/pkg/clock"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
)

var (
	// ErrLockHeld is returned when another wallet holds an unexpired lock.
	ErrLockHeld = errors.New("ordinal is locked by another wallet")
	// ErrNotLockHolder is returned when releasing a lock held by someone else.
	ErrNotLockHolder = errors.New("lock is held by another wallet")
)

// LockStore is the ordinal lock table. Locks carry an absolute expiry and
// lapse without any cleanup.
type LockStore interface {
	// Acquire locks itemID for wallet until now+ttl. Re-acquiring an own lock
	// extends it.
	Acquire(ctx context.Context, collectionID, itemID, wallet string, ttl time.Duration) (models.Lock, error)
	// Release drops wallet's lock on itemID. Releasing a missing lock is a no-op.
	Release(ctx context.Context, collectionID, itemID, wallet string) error
	// Get returns the live locks among itemIDs, keyed by item.
	Get(ctx context.Context, collectionID string, itemIDs []string) (map[string]models.Lock, error)
}

type memoryLock struct {
	wallet string
	until  time.Time
}

// MemoryLockStore keeps locks in process memory.
type MemoryLockStore struct {
	mu    sync.Mutex
	clock clock.Clock
	locks map[string]memoryLock
}

// NewMemoryLockStore creates an empty in-memory lock table.
func NewMemoryLockStore(c clock.Clock) *MemoryLockStore {
	if c == nil {
		c = clock.NewSystem()
	}
	return &MemoryLockStore{clock: c, locks: make(map[string]memoryLock)}
}

func (s *MemoryLockStore) key(collectionID, itemID string) string {
	return lockKey(collectionID, itemID)
}

func (s *MemoryLockStore) Acquire(_ context.Context, collectionID, itemID, wallet string, ttl time.Duration) (models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	k := s.key(collectionID, itemID)
	if cur, ok := s.locks[k]; ok && cur.until.After(now) && cur.wallet != wallet {
		return models.Lock{}, ErrLockHeld
	}
	l := memoryLock{wallet: wallet, until: now.Add(ttl)}
	s.locks[k] = l
	return models.Lock{ItemID: itemID, Wallet: wallet, Until: l.until}, nil
}

func (s *MemoryLockStore) Release(_ context.Context, collectionID, itemID, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(collectionID, itemID)
	cur, ok := s.locks[k]
	if !ok || !cur.until.After(s.clock.Now()) {
		delete(s.locks, k)
		return nil
	}
	if cur.wallet != wallet {
		return ErrNotLockHolder
	}
	delete(s.locks, k)
	return nil
}

func (s *MemoryLockStore) Get(_ context.Context, collectionID string, itemIDs []string) (map[string]models.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	out := make(map[string]models.Lock)
	for _, id := range itemIDs {
		cur, ok := s.locks[s.key(collectionID, id)]
		if !ok || !cur.until.After(now) {
			continue
		}
		out[id] = models.Lock{ItemID: id, Wallet: cur.wallet, Until: cur.until}
	}
	return out, nil
}

func lockKey(collectionID, itemID string) string {
	return "lock:" + collectionID + ":" + itemID
}
