package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lk, err := l.Obtain(ctx, "order:1:2026-03-10", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = lk.Release(ctx)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside)
	assert.Empty(t, l.slots)
}

func TestLocalTimesOut(t *testing.T) {
	l := NewLocal()
	held, err := l.Obtain(context.Background(), "k", time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Obtain(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrNotObtained)

	_ = held.Release(context.Background())
	_ = held.Release(context.Background())

	other, err := l.Obtain(context.Background(), "k", time.Second)
	require.NoError(t, err)
	_ = other.Release(context.Background())
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	a, err := l.Obtain(context.Background(), "a", time.Second)
	require.NoError(t, err)
	defer a.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	b, err := l.Obtain(ctx, "b", time.Second)
	require.NoError(t, err)
	_ = b.Release(ctx)
}

type fakeObtainer struct {
	key string
	ttl time.Duration
	opt *redislock.Options
	err error
}

func (f *fakeObtainer) Obtain(_ context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error) {
	f.key, f.ttl, f.opt = key, ttl, opt
	return nil, f.err
}

func TestRedisMapsNotObtained(t *testing.T) {
	f := &fakeObtainer{err: redislock.ErrNotObtained}
	r := &Redis{client: f, backoff: time.Millisecond}

	lk, err := r.Obtain(context.Background(), "order:1:2026-03-10", 5*time.Second)
	assert.ErrorIs(t, err, ErrNotObtained)
	assert.Nil(t, lk)
	assert.Equal(t, "lock:order:1:2026-03-10", f.key)
	assert.Equal(t, 5*time.Second, f.ttl)
	require.NotNil(t, f.opt)
	assert.NotNil(t, f.opt.RetryStrategy)
}

func TestRedisPassesOtherErrors(t *testing.T) {
	down := errors.New("connection refused")
	r := &Redis{client: &fakeObtainer{err: down}, backoff: time.Millisecond}

	_, err := r.Obtain(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrNotObtained)
}
