package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

func TestRetryScheduleDelay(t *testing.T) {
	t.Run("nil policy allows nothing", func(t *testing.T) {
		s := newRetrySchedule(nil)
		assert.False(t, s.allows(0))
		assert.Equal(t, time.Duration(0), s.delay(0))
	})

	t.Run("empty delay retries immediately", func(t *testing.T) {
		s := newRetrySchedule(&schema.RetryPolicy{Max: 3, Backoff: "exponential"})
		assert.True(t, s.allows(2))
		assert.False(t, s.allows(3))
		assert.Equal(t, time.Duration(0), s.delay(2))
	})

	t.Run("unparseable delay retries immediately", func(t *testing.T) {
		s := newRetrySchedule(&schema.RetryPolicy{Max: 3, Delay: "not-a-duration"})
		assert.Equal(t, time.Duration(0), s.delay(0))
	})

	t.Run("constant", func(t *testing.T) {
		s := newRetrySchedule(&schema.RetryPolicy{Max: 3, Backoff: "constant", Delay: "100ms"})
		assert.Equal(t, 100*time.Millisecond, s.delay(0))
		assert.Equal(t, 100*time.Millisecond, s.delay(5))
	})

	t.Run("linear", func(t *testing.T) {
		s := newRetrySchedule(&schema.RetryPolicy{Max: 3, Backoff: "linear", Delay: "100ms"})
		assert.Equal(t, 100*time.Millisecond, s.delay(0))
		assert.Equal(t, 300*time.Millisecond, s.delay(2))
	})

	t.Run("exponential", func(t *testing.T) {
		s := newRetrySchedule(&schema.RetryPolicy{Max: 3, Backoff: "exponential", Delay: "100ms"})
		assert.Equal(t, 100*time.Millisecond, s.delay(0))
		assert.Equal(t, 200*time.Millisecond, s.delay(1))
		assert.Equal(t, 400*time.Millisecond, s.delay(2))
	})

	t.Run("exponential shift is capped", func(t *testing.T) {
		s := newRetrySchedule(&schema.RetryPolicy{Max: 100, Backoff: "exponential", Delay: "1ns"})
		assert.Equal(t, s.delay(maxBackoffShift), s.delay(maxBackoffShift+10))
	})
}

func TestRetryScheduleWait(t *testing.T) {
	t.Run("zero delay returns immediately", func(t *testing.T) {
		s := newRetrySchedule(&schema.RetryPolicy{Max: 1})
		require.NoError(t, s.wait(context.Background(), 0))
	})

	t.Run("waits out the delay", func(t *testing.T) {
		s := newRetrySchedule(&schema.RetryPolicy{Max: 1, Delay: "20ms"})
		start := time.Now()
		require.NoError(t, s.wait(context.Background(), 0))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("cancelled context cuts the wait short", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := newRetrySchedule(&schema.RetryPolicy{Max: 1, Delay: "1h"})
		err := s.wait(ctx, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
