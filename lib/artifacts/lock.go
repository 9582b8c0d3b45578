package artifacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mazen160/go-random"
	"github.com/redis/go-redis/v9"
)

// Locker serializes the work done for a single hash. The returned func
// releases the lock and must always be called.
type Locker interface {
	Lock(ctx context.Context, hash string) (func(), error)
}

// LocalLocker is a keyed mutex for a single process.
type LocalLocker struct {
	mutex sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: map[string]*localLock{}}
}

func (l *LocalLocker) Lock(ctx context.Context, hash string) (func(), error) {
	l.mutex.Lock()
	lock, ok := l.locks[hash]
	if !ok {
		lock = &localLock{ch: make(chan struct{}, 1)}
		l.locks[hash] = lock
	}
	lock.refs++
	l.mutex.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(hash, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.ch
			l.release(hash, lock)
		})
	}, nil
}

func (l *LocalLocker) release(hash string, lock *localLock) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, hash)
	}
}

var ErrLockTimeout = errors.New("timed out waiting for lock")

// releases the key only if it still holds our token
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

type RedisLockerOptions struct {
	// key prefix, defaults to "lunchbot:lock:"
	Prefix string
	// expiry of a held lock, defaults to 2 minutes
	TTL time.Duration
	// delay between acquisition attempts, defaults to 200ms
	RetryInterval time.Duration
	// how long Lock waits at most, defaults to TTL
	WaitTimeout time.Duration
}

// RedisLocker shares per-hash locks between several lunchbot instances.
type RedisLocker struct {
	client   redis.Cmdable
	options  RedisLockerOptions
	newToken func() (string, error)
}

func NewRedisLocker(client redis.Cmdable, options RedisLockerOptions) *RedisLocker {
	if options.Prefix == "" {
		options.Prefix = "lunchbot:lock:"
	}
	if options.TTL <= 0 {
		options.TTL = 2 * time.Minute
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = 200 * time.Millisecond
	}
	if options.WaitTimeout <= 0 {
		options.WaitTimeout = options.TTL
	}
	return &RedisLocker{
		client:  client,
		options: options,
		newToken: func() (string, error) {
			return random.String(24)
		},
	}
}

func (l *RedisLocker) Lock(ctx context.Context, hash string) (func(), error) {
	ctx, span := tracer.Start(ctx, "RedisLocker.Lock")
	defer span.End()

	key := l.options.Prefix + hash
	token, err := l.newToken()
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(l.options.WaitTimeout)
	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.options.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if acquired {
			break
		}
		if time.Now().Add(l.options.RetryInterval).After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		select {
		case <-time.After(l.options.RetryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
			if err != nil {
				slog.Warn("failed to release lock", "key", key, "err", err)
			}
		})
	}, nil
}
