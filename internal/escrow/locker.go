package escrow

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// BookingLocker serializes escrow operations for a single booking.  Lock,
// release and refund each read ledger and booking state before writing,
// so concurrent calls for the same booking (duplicate webhook delivery,
// a release racing a refund) must not interleave.  Acquire blocks or
// retries until the lock is held and returns a function that releases it.
type BookingLocker interface {
    Acquire(ctx context.Context, bookingID string) (release func(), err error)
}

// releaseScript deletes a lock key only when it still holds the caller's
// token, so an operation that outlived its TTL cannot release a lock now
// owned by someone else.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// RedisLocker implements BookingLocker with SET NX on a shared Redis
// instance, serializing escrow operations across all server instances.
type RedisLocker struct {
    client *redis.Client
    ttl    time.Duration
}

// NewRedisLocker returns a RedisLocker holding locks for the given TTL.
// The TTL bounds how long a crashed instance can keep a booking locked.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
    return &RedisLocker{client: client, ttl: ttl}
}

// Acquire takes the per-booking lock, retrying with a short backoff for
// up to the lock TTL.  ErrLockBusy is returned when the lock stays held
// for the whole window.
func (l *RedisLocker) Acquire(ctx context.Context, bookingID string) (func(), error) {
    key := "escrow:lock:" + bookingID
    token := uuid.NewString()
    deadline := time.Now().Add(l.ttl)
    for {
        ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
        if err != nil {
            return nil, err
        }
        if ok {
            release := func() {
                rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
                defer cancel()
                _ = l.client.Eval(rctx, releaseScript, []string{key}, token).Err()
            }
            return release, nil
        }
        if time.Now().After(deadline) {
            return nil, ErrLockBusy
        }
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        case <-time.After(50 * time.Millisecond):
        }
    }
}

// LocalLocker implements BookingLocker with per-key in-process locks.
// It is the graceful-degradation path when Redis is unavailable and the
// default for tests; it only protects a single process.
type LocalLocker struct {
    mu    sync.Mutex
    locks map[string]*localLock
}

type localLock struct {
    sem  chan struct{} // capacity 1; full while held
    refs int
}

// NewLocalLocker returns an empty in-process locker.
func NewLocalLocker() *LocalLocker {
    return &LocalLocker{locks: make(map[string]*localLock)}
}

// Acquire blocks until the per-booking lock is held or ctx is cancelled.
// Entries are reference-counted and removed once the last waiter leaves,
// so the map does not grow with the number of bookings ever touched.
func (l *LocalLocker) Acquire(ctx context.Context, bookingID string) (func(), error) {
    l.mu.Lock()
    lk, ok := l.locks[bookingID]
    if !ok {
        lk = &localLock{sem: make(chan struct{}, 1)}
        l.locks[bookingID] = lk
    }
    lk.refs++
    l.mu.Unlock()

    leave := func() {
        l.mu.Lock()
        lk.refs--
        if lk.refs == 0 {
            delete(l.locks, bookingID)
        }
        l.mu.Unlock()
    }

    select {
    case lk.sem <- struct{}{}:
    case <-ctx.Done():
        leave()
        return nil, ctx.Err()
    }
    release := func() {
        <-lk.sem
        leave()
    }
    return release, nil
}
