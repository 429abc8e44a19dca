package distributed

import (
	"context"
	"fmt"
	"time"

	"communiconnect/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockKeyPrefix = "communiconnect:broadcast-lock:"

// BroadcastLock elects at most one uplink owner per livestream across
// instances, via a Redis SET NX lease renewed while the broadcast runs.
type BroadcastLock struct {
	client     *redis.Client
	instanceID string
	ttl        time.Duration
	logger     *zap.SugaredLogger
}

func NewBroadcastLock(client *redis.Client, instanceID string, ttl time.Duration, logger *zap.SugaredLogger) *BroadcastLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &BroadcastLock{
		client:     client,
		instanceID: instanceID,
		ttl:        ttl,
		logger:     logger,
	}
}

func lockKey(id domain.LivestreamID) string {
	return lockKeyPrefix + string(id)
}

// Acquire takes the lease for a livestream. Returns false if another
// instance holds it.
func (l *BroadcastLock) Acquire(ctx context.Context, id domain.LivestreamID) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(id), l.instanceID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire broadcast lock: %w", err)
	}
	if ok {
		l.logger.Infow("broadcast lock acquired", "livestream_id", id)
	}
	return ok, nil
}

// Renew extends the lease when this instance still holds it.
func (l *BroadcastLock) Renew(ctx context.Context, id domain.LivestreamID) error {
	holder, err := l.client.Get(ctx, lockKey(id)).Result()
	if err == redis.Nil {
		return fmt.Errorf("broadcast lock expired for %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to check broadcast lock: %w", err)
	}
	if holder != l.instanceID {
		return fmt.Errorf("broadcast lock for %s held by %s", id, holder)
	}
	return l.client.Expire(ctx, lockKey(id), l.ttl).Err()
}

// Release drops the lease if this instance holds it.
func (l *BroadcastLock) Release(ctx context.Context, id domain.LivestreamID) error {
	holder, err := l.client.Get(ctx, lockKey(id)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check broadcast lock: %w", err)
	}
	if holder != l.instanceID {
		return nil
	}
	if err := l.client.Del(ctx, lockKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to release broadcast lock: %w", err)
	}
	l.logger.Infow("broadcast lock released", "livestream_id", id)
	return nil
}
