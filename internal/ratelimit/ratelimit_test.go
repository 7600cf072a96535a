package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(0, 1)
	assert.Error(t, err)
	_, err = New(-5, 1)
	assert.Error(t, err)
	_, err = New(10, 0)
	assert.Error(t, err)
	_, err = New(10, -1)
	assert.Error(t, err)
}

func TestBucketStartsFull(t *testing.T) {
	l, err := New(1, 3)
	require.NoError(t, err)

	// Burst tokens are available immediately.
	for i := 0; i < 3; i++ {
		assert.True(t, l.TryAcquire(), "token %d should be available", i)
	}
	// Bucket is now empty.
	assert.False(t, l.TryAcquire())
}

func TestTokensNeverExceedBurst(t *testing.T) {
	l, err := New(1000, 5)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, l.Tokens(), float64(5))
}

func TestSingleCallerThroughput(t *testing.T) {
	l, err := New(10, 1)
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 20; i++ {
		require.NoError(t, l.Acquire(ctx))
	}
	elapsed := time.Since(start)

	// 20 acquires at 10/s with burst 1: first is free, 19 wait 100ms each.
	assert.GreaterOrEqual(t, elapsed, 1850*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 2300*time.Millisecond)
}

func TestParallelCallerThroughput(t *testing.T) {
	l, err := New(10, 1)
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				if err := l.Acquire(ctx); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 1850*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 2400*time.Millisecond)
}

func TestAcquireCancellation(t *testing.T) {
	l, err := New(0.1, 1)
	require.NoError(t, err)

	// Drain the single token so the next acquire would block for ~10s.
	require.True(t, l.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = l.Acquire(ctx)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAccessors(t *testing.T) {
	l, err := New(2.5, 4)
	require.NoError(t, err)
	assert.Equal(t, 2.5, l.Rate())
	assert.Equal(t, 4, l.Burst())
}
