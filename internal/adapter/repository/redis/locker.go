package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/ledgerbot/internal/usecase"
)

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements usecase.AccountLocker across processes with SET NX PX
// locks. A lock expires after ttl if its holder dies.
type Locker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewLocker creates a Locker. Zero durations fall back to defaults.
func NewLocker(client redis.UniversalClient, ttl, poll time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	return &Locker{
		client: client,
		prefix: "lock:account:",
		ttl:    ttl,
		poll:   poll,
	}
}

// Lock acquires every key in sorted order, waiting until ctx is done.
func (l *Locker) Lock(ctx context.Context, keys []string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	sorted := usecase.SortedUnique(keys)
	held := make([]string, 0, len(sorted))

	release := func() {
		// Release must run even when the caller's ctx is already done.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = unlockScript.Run(rctx, l.client, []string{held[i]}, token).Err()
		}
	}

	for _, key := range sorted {
		fullKey := l.prefix + key
		if err := l.acquire(ctx, fullKey, token); err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		held = append(held, fullKey)
	}

	return sync.OnceFunc(release), nil
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
