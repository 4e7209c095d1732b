package queue

import (
	"context"
	"time"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// backoff doubles from initialBackoff up to maxBackoff.
type backoff struct {
	next time.Duration
}

func newBackoff() *backoff {
	return &backoff{next: initialBackoff}
}

func (b *backoff) Next() time.Duration {
	d := b.next
	b.next = min(b.next*2, maxBackoff)
	return d
}

func (b *backoff) Reset() {
	b.next = initialBackoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
