package repository

import (
	"context"
	"time"

	"github.com/AmentiAI/solmaker-sub001/pkg/clock"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"github.com/redis/go-redis/v9"
)

// acquireScript sets the lock when free and extends it when the caller
// already holds it. Returns 1 on success, 0 when held by another wallet.
var acquireScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
  return 1
end
if cur == ARGV[1] then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  return 1
end
return 0
`)

// releaseScript deletes the lock only for its holder. Returns 1 when deleted,
// 0 when absent, -1 when held by another wallet.
var releaseScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  return 0
end
if cur ~= ARGV[1] then
  return -1
end
redis.call('DEL', KEYS[1])
return 1
`)

// RedisLockStore keeps locks as expiring redis keys "lock:{collection}:{item}"
// holding the wallet address.
type RedisLockStore struct {
	client redis.UniversalClient
	clock  clock.Clock
}

// NewRedisLockStore creates a lock table on client.
func NewRedisLockStore(client redis.UniversalClient, c clock.Clock) *RedisLockStore {
	if c == nil {
		c = clock.NewSystem()
	}
	return &RedisLockStore{client: client, clock: c}
}

func (s *RedisLockStore) Acquire(ctx context.Context, collectionID, itemID, wallet string, ttl time.Duration) (models.Lock, error) {
	now := s.clock.Now()
	res, err := acquireScript.Run(ctx, s.client, []string{lockKey(collectionID, itemID)}, wallet, ttl.Milliseconds()).Int()
	if err != nil {
		return models.Lock{}, err
	}
	if res == 0 {
		return models.Lock{}, ErrLockHeld
	}
	return models.Lock{ItemID: itemID, Wallet: wallet, Until: now.Add(ttl)}, nil
}

func (s *RedisLockStore) Release(ctx context.Context, collectionID, itemID, wallet string) error {
	res, err := releaseScript.Run(ctx, s.client, []string{lockKey(collectionID, itemID)}, wallet).Int()
	if err != nil {
		return err
	}
	if res < 0 {
		return ErrNotLockHolder
	}
	return nil
}

func (s *RedisLockStore) Get(ctx context.Context, collectionID string, itemIDs []string) (map[string]models.Lock, error) {
	out := make(map[string]models.Lock)
	if len(itemIDs) == 0 {
		return out, nil
	}

	now := s.clock.Now()
	pipe := s.client.Pipeline()
	holders := make([]*redis.StringCmd, len(itemIDs))
	ttls := make([]*redis.DurationCmd, len(itemIDs))
	for i, id := range itemIDs {
		key := lockKey(collectionID, id)
		holders[i] = pipe.Get(ctx, key)
		ttls[i] = pipe.PTTL(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	for i, id := range itemIDs {
		wallet, err := holders[i].Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		ttl := ttls[i].Val()
		if ttl <= 0 {
			continue
		}
		out[id] = models.Lock{ItemID: id, Wallet: wallet, Until: now.Add(ttl)}
	}
	return out, nil
}
