package scheduler

import (
	"context"
	"fmt"
	"time"

	"jobmate/profile-service/internal/observability"
)

// Resolver looks up the current broker address.
type Resolver interface {
	Refresh(ctx context.Context) (string, error)
}

// Rebinder moves the transport to a new address.
type Rebinder interface {
	Rebind(ctx context.Context, addr string) error
}

// Reclaimer redelivers or dead-letters stuck messages.
type Reclaimer interface {
	Reclaim(ctx context.Context) error
}

// Reaper fails posts stuck in PENDING.
type Reaper interface {
	ReapStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// BrokerRefresh re-resolves the broker and rebinds the transport when the
// address changed.
func BrokerRefresh(every time.Duration, r Resolver, b Rebinder) Job {
	return Job{
		Name: "broker-refresh",
		Spec: Every(every),
		Run: func(ctx context.Context) error {
			addr, err := r.Refresh(ctx)
			if err != nil {
				return err
			}
			return b.Rebind(ctx, addr)
		},
	}
}

// StreamReclaim hands idle unacknowledged messages back to their handlers.
func StreamReclaim(every time.Duration, r Reclaimer) Job {
	return Job{
		Name: "stream-reclaim",
		Spec: Every(every),
		Run:  r.Reclaim,
	}
}

// PendingPostReaper fails posts whose media callback never arrived.
func PendingPostReaper(every, timeout time.Duration, r Reaper, metrics observability.Recorder) Job {
	return Job{
		Name: "pending-post-reaper",
		Spec: Every(every),
		Run: func(ctx context.Context) error {
			n, err := r.ReapStale(ctx, timeout)
			if err != nil {
				return fmt.Errorf("reap stale posts: %w", err)
			}
			metrics.RecordReaped(ctx, n)
			return nil
		},
	}
}
