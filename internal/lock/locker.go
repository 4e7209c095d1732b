package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/route-engine/internal/domain"
)

var (
	// ErrHeld is returned when another run owns the batch.
	ErrHeld = fmt.Errorf("%w: route generation already in progress", domain.ErrConflict)
	// ErrLost means the lock expired and may have been taken by another run.
	ErrLost = errors.New("batch lock expired before release")
)

// Release gives up a held lock.
type Release func(ctx context.Context) error

// Locker serializes route generation per batch across processes.
type Locker interface {
	// Acquire takes the batch lock or fails with ErrHeld.
	Acquire(ctx context.Context, batchID string) (Release, error)
	// Wait blocks until the batch lock is taken or ctx is done.
	Wait(ctx context.Context, batchID string) (Release, error)
}
