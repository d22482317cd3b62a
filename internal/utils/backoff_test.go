package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noJitter(time.Duration) time.Duration { return 0 }

func TestBackoffDelayDoubles(t *testing.T) {
	b := NewBackoff(time.Second, 3, time.Second).WithJitter(noJitter)
	assert.Equal(t, time.Second, b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 4*time.Second, b.Delay(3))
}

func TestBackoffJitterStaysInRange(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 3, time.Second)
	for i := 0; i < 100; i++ {
		d := b.Delay(1)
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		require.Less(t, d, 1100*time.Millisecond)
	}
}

func TestBackoffDoStopsOnSuccess(t *testing.T) {
	b := NewBackoff(time.Millisecond, 3, 0)
	calls := 0
	n, err := b.Do(context.Background(), func(i int) error {
		calls++
		if i < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, calls)
}

func TestBackoffDoExhausts(t *testing.T) {
	b := NewBackoff(time.Millisecond, 3, 0)
	n, err := b.Do(context.Background(), func(int) error { return errors.New("down") })
	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, n)
}

func TestBackoffDoHonoursContext(t *testing.T) {
	b := NewBackoff(time.Hour, 3, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	n, err := b.Do(ctx, func(int) error { return errors.New("down") })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, n)
}
