package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/scout/backend/internal/contracts"
)

// Lease is a Redis-backed mutual-exclusion guard. The scan engine and the
// monitor loop acquire the same key per criteria kind, so a monitor prune
// can never race a scan's fresh retain of the same symbol. The TTL bounds
// how long a crashed holder can block the next run.
type Lease struct {
	client *Client
	prefix string

	// Fallback for disabled Redis: in-process exclusivity only.
	mu   sync.Mutex
	held map[string]bool
}

// NewLease creates a lease helper
func NewLease(client *Client, prefix string) *Lease {
	return &Lease{
		client: client,
		prefix: prefix,
		held:   make(map[string]bool),
	}
}

// Acquire takes the lease for key, returning a release func. When the lease
// is already held, it fails fast with contracts.ErrLockContention.
func (l *Lease) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if !l.client.Enabled() {
		return l.acquireLocal(key)
	}

	fullKey := fmt.Sprintf("%s:lease:%s", l.prefix, key)
	token := uuid.NewString()

	ok, err := l.client.Redis().SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lease acquire failed: %w", err)
	}
	if !ok {
		return nil, contracts.ErrLockContention
	}

	release := func() {
		// Compare-and-delete so an expired lease taken over by another run
		// is never released by the previous holder.
		script := `
			if redis.call('GET', KEYS[1]) == ARGV[1] then
				return redis.call('DEL', KEYS[1])
			end
			return 0
		`
		_ = l.client.Redis().Eval(context.Background(), script, []string{fullKey}, token).Err()
	}

	return release, nil
}

// acquireLocal guards within the process when Redis is disabled
func (l *Lease) acquireLocal(key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, contracts.ErrLockContention
	}
	l.held[key] = true

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}

	return release, nil
}
