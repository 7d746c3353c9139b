package lock

import (
	"context"
	"time"
)

// NoOpLocker grants every key immediately and remembers nothing. It backs
// lock.backend "none", where the console is the only writer.
type NoOpLocker struct{}

var _ Locker = (*NoOpLocker)(nil)

func NewNoOpLocker() *NoOpLocker { return &NoOpLocker{} }

func (*NoOpLocker) Acquire(ctx context.Context, _ string, _ time.Duration) (bool, error) {
	return granted(ctx)
}

func (*NoOpLocker) AcquireWithRetry(ctx context.Context, _ string, _ time.Duration, _ int, _ time.Duration) (bool, error) {
	return granted(ctx)
}

func (*NoOpLocker) Release(ctx context.Context, _ string) (bool, error) {
	return granted(ctx)
}

// IsHeld never reports a holder since nothing is recorded.
func (*NoOpLocker) IsHeld(ctx context.Context, _ string) (bool, error) {
	return false, ctx.Err()
}

// granted succeeds unless ctx is already done.
func granted(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}
