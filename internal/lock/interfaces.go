// Package lock provides the write lock that serialises state mutations.
// A single process uses the in-memory locker. Processes sharing a database
// or data directory use the Redis locker.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotAcquired is returned by WithLock when the lock stays held by someone else.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker defines the interface for local and distributed locking.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// Returns true if the lock was acquired, false if it's held by another owner.
	// The lock will automatically expire after the specified TTL.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry attempts to acquire a lock with retries.
	// Will retry up to maxRetries times with retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release releases a lock held by this locker.
	// Returns true if the lock was released, false if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)

	// IsHeld checks if the lock is currently held by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Options controls how WithLock waits for a lock.
type Options struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

// DefaultOptions returns the stock lock options.
func DefaultOptions() Options {
	return Options{
		TTL:        30 * time.Second,
		Retries:    50,
		RetryDelay: 100 * time.Millisecond,
	}
}

// WithLock runs fn while holding key. The lock is released when fn returns,
// even if fn fails; a release error is returned only when fn succeeded.
func WithLock(ctx context.Context, l Locker, key string, opts Options, fn func(ctx context.Context) error) (err error) {
	acquired, err := l.AcquireWithRetry(ctx, key, opts.TTL, opts.Retries, opts.RetryDelay)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", ErrNotAcquired, key)
	}

	defer func() {
		// Release even when ctx is already cancelled.
		_, relErr := l.Release(context.WithoutCancel(ctx), key)
		if err == nil && relErr != nil {
			err = fmt.Errorf("release %s: %w", key, relErr)
		}
	}()

	return fn(ctx)
}

// retry calls acquire until it succeeds, fails, or maxRetries extra attempts pass.
func retry(ctx context.Context, maxRetries int, retryDelay time.Duration, acquire func() (bool, error)) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := acquire()
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		// Don't sleep on the last attempt.
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation.
var Keys = lockKeys{}

type lockKeys struct{}

// ElectionState returns the key guarding users, candidates and the election window.
func (lockKeys) ElectionState() string {
	return "lock:election:state"
}
