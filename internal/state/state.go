package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"photocache/downloader/internal/domain"

	"github.com/redis/go-redis/v9"
)

// StateManager guards passes against overlap and remembers the last finished one.
type StateManager interface {
	AcquirePassLock(ctx context.Context, passID string, ttl time.Duration) error
	ReleasePassLock(ctx context.Context, passID string) error
	GetLastPass(ctx context.Context) (*domain.PassSummary, error)
	SetLastPass(ctx context.Context, summary domain.PassSummary) error
}

// releaseScript deletes the lock only while it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisStateManager(redisClient *redis.Client) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   "photocache:pass:",
	}
}

func (s *redisStateManager) lockKey() string {
	return s.keyPrefix + "lock"
}

func (s *redisStateManager) lastKey() string {
	return s.keyPrefix + "last"
}

func (s *redisStateManager) AcquirePassLock(ctx context.Context, passID string, ttl time.Duration) error {
	ok, err := s.redisClient.SetNX(ctx, s.lockKey(), passID, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire pass lock: %w", err)
	}
	if !ok {
		holder, _ := s.redisClient.Get(ctx, s.lockKey()).Result()
		return fmt.Errorf("pass lock held by %q: %w", holder, domain.ErrPassInProgress)
	}
	return nil
}

func (s *redisStateManager) ReleasePassLock(ctx context.Context, passID string) error {
	if err := releaseScript.Run(ctx, s.redisClient, []string{s.lockKey()}, passID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release pass lock: %w", err)
	}
	return nil
}

func (s *redisStateManager) GetLastPass(ctx context.Context) (*domain.PassSummary, error) {
	val, err := s.redisClient.Get(ctx, s.lastKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // No pass recorded yet
		}
		return nil, fmt.Errorf("failed to get last pass: %w", err)
	}

	var summary domain.PassSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, fmt.Errorf("failed to decode last pass: %w", err)
	}

	return &summary, nil
}

func (s *redisStateManager) SetLastPass(ctx context.Context, summary domain.PassSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode pass %s: %w", summary.PassID, err)
	}

	if err := s.redisClient.Set(ctx, s.lastKey(), data, 0).Err(); err != nil { // No expiration
		return fmt.Errorf("failed to set last pass: %w", err)
	}
	return nil
}
