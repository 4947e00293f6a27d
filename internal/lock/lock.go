// Package lock serializes check-then-act sequences keyed by a string.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained means the lock stayed busy until the context ended.
var ErrNotObtained = errors.New("lock not obtained")

type Locker interface {
	// Obtain blocks until key is held or ctx ends. ttl bounds how long a
	// crashed holder can keep the key.
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

type Lock interface {
	Release(ctx context.Context) error
}

type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// Redis locks across every instance sharing the redis server.
type Redis struct {
	client  obtainer
	backoff time.Duration
}

func NewRedis(rdb redis.UniversalClient) *Redis {
	return &Redis{client: redislock.New(rdb), backoff: 25 * time.Millisecond}
}

func (r *Redis) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	l, err := r.client.Obtain(ctx, "lock:"+key, ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.backoff),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Local locks within this process only.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) Obtain(ctx context.Context, key string, _ time.Duration) (Lock, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return &localLock{owner: l, key: key, s: s}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ErrNotObtained
	}
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

type localLock struct {
	owner *Local
	key   string
	s     *slot
	once  sync.Once
}

func (ll *localLock) Release(context.Context) error {
	ll.once.Do(func() {
		<-ll.s.ch
		ll.owner.unref(ll.key, ll.s)
	})
	return nil
}
