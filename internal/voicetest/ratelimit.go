package voicetest

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultConnectFloor is the minimum spacing between successive voice
// channel connect attempts when none is configured. The floor is global to
// the process, matching the shared upstream rate limit.
const DefaultConnectFloor = 2 * time.Second

// ConnectLimiter enforces a minimum interval between channel-connect
// attempts across the whole process. Callers below the floor are delayed,
// never rejected; a caller arriving after the floor has already elapsed
// proceeds immediately.
//
// ConnectLimiter is safe for concurrent use.
type ConnectLimiter struct {
	lim *rate.Limiter
}

// NewConnectLimiter creates a limiter with the given floor between attempts.
// A non-positive floor selects [DefaultConnectFloor].
func NewConnectLimiter(floor time.Duration) *ConnectLimiter {
	if floor <= 0 {
		floor = DefaultConnectFloor
	}
	// Burst 1 with a full initial bucket: the first attempt is free, each
	// subsequent attempt waits out the remainder of the floor.
	return &ConnectLimiter{lim: rate.NewLimiter(rate.Every(floor), 1)}
}

// Wait blocks until the next connect attempt is allowed or ctx is cancelled.
func (l *ConnectLimiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
