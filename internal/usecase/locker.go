package usecase

import (
	"context"
	"sort"
	"sync"
)

// KeyedLocker is an in-process AccountLocker. Each key is a one-slot
// semaphore so that waiting honours context cancellation.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedLocker creates an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyLock)}
}

// Lock acquires every key in sorted order. If ctx ends first, keys already
// held are released and ctx.Err() is returned.
func (l *KeyedLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	keys = SortedUnique(keys)
	held := make([]string, 0, len(keys))

	for _, key := range keys {
		kl := l.acquireRef(key)
		select {
		case kl.sem <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.releaseRef(key)
			l.unlock(held)
			return nil, ctx.Err()
		}
	}

	return sync.OnceFunc(func() { l.unlock(held) }), nil
}

func (l *KeyedLocker) unlock(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		kl := l.locks[keys[i]]
		l.mu.Unlock()

		<-kl.sem
		l.releaseRef(keys[i])
	}
}

func (l *KeyedLocker) acquireRef(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *KeyedLocker) releaseRef(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl := l.locks[key]
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// SortedUnique returns a sorted copy of keys without duplicates.
func SortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
