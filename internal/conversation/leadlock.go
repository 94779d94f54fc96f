package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// LeadLocker serializes engine invocations per lead. Two inbound messages
// for the same lead must never run concurrently: the fill-empty-slot update
// and the contact_attempts counter both race otherwise.
type LeadLocker interface {
	// Acquire blocks until the lead's lock is held or ctx is done. The
	// returned release function must always be called.
	Acquire(ctx context.Context, leadID string) (release func(), err error)
}

const (
	leadLockTTL       = 2 * time.Minute
	leadLockRetryWait = 100 * time.Millisecond
)

// leadLockRelease deletes the lease only while we still own it. A plain
// GET-then-DEL pair can delete another worker's lease if the TTL expires
// between the two commands; the script makes the check and delete one
// round trip.
var leadLockRelease = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLeadLocker implements LeadLocker with a SETNX lease so the guarantee
// holds across worker processes. The TTL bounds how long a crashed worker
// can hold a lead hostage.
type RedisLeadLocker struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisLeadLocker wraps the provided Redis client.
func NewRedisLeadLocker(client *redis.Client, logger *logging.Logger) *RedisLeadLocker {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLeadLocker{client: client, logger: logger}
}

var _ LeadLocker = (*RedisLeadLocker)(nil)

func leadLockKey(leadID string) string {
	return "leadlock:" + leadID
}

// Acquire polls SETNX until the lease is obtained.
func (l *RedisLeadLocker) Acquire(ctx context.Context, leadID string) (func(), error) {
	key := leadLockKey(leadID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, leadLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("conversation: lead lock acquire failed: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(leadLockRetryWait):
		}
	}

	release := func() {
		if err := leadLockRelease.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("failed to release lead lock", "lead_id", leadID, "error", err)
		}
	}
	return release, nil
}

// MemoryLeadLocker is an in-process LeadLocker for tests and single-process
// deployments using the memory queue.
type MemoryLeadLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryLeadLocker creates an empty locker.
func NewMemoryLeadLocker() *MemoryLeadLocker {
	return &MemoryLeadLocker{locks: make(map[string]*sync.Mutex)}
}

var _ LeadLocker = (*MemoryLeadLocker)(nil)

func (l *MemoryLeadLocker) Acquire(_ context.Context, leadID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[leadID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[leadID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock, nil
}
