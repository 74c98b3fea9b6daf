package engine

import (
	"context"
	"time"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// Exponential shifts are capped so the delay cannot overflow time.Duration.
const maxBackoffShift = 30

// retrySchedule is the delay curve derived from a node's retry policy. The
// zero value allows no retries.
type retrySchedule struct {
	base    time.Duration
	backoff string
	max     int
}

// newRetrySchedule precomputes the schedule for one node. A missing or
// unparseable delay yields immediate retries.
func newRetrySchedule(policy *schema.RetryPolicy) retrySchedule {
	if policy == nil {
		return retrySchedule{}
	}
	s := retrySchedule{backoff: policy.Backoff, max: policy.Max}
	if policy.Delay != "" {
		if d, err := time.ParseDuration(policy.Delay); err == nil {
			s.base = d
		}
	}
	return s
}

// allows reports whether retry number attempt (zero-based) is within budget.
func (s retrySchedule) allows(attempt int) bool {
	return attempt < s.max
}

// delay returns the wait before retry number attempt.
func (s retrySchedule) delay(attempt int) time.Duration {
	if s.base <= 0 {
		return 0
	}
	switch s.backoff {
	case "exponential":
		if attempt > maxBackoffShift {
			attempt = maxBackoffShift
		}
		return s.base << uint(attempt)
	case "linear":
		return s.base * time.Duration(attempt+1)
	default:
		// "constant", "none" or unset
		return s.base
	}
}

// wait blocks for the attempt's delay, aborting early on cancellation.
func (s retrySchedule) wait(ctx context.Context, attempt int) error {
	d := s.delay(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
