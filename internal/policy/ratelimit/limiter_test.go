package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacerSpacesRequests(t *testing.T) {
	t.Parallel()

	var delays atomic.Int32
	p := New(Config{Pause: 50 * time.Millisecond, OnDelay: func(time.Duration) { delays.Add(1) }})
	ctx := context.Background()

	require.NoError(t, p.Wait(ctx))
	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	require.Equal(t, int32(1), delays.Load())
}

func TestPacerUnlimited(t *testing.T) {
	t.Parallel()

	p := New(Config{})
	start := time.Now()
	for range 100 {
		require.NoError(t, p.Wait(context.Background()))
	}
	require.Less(t, time.Since(start), time.Second)
}

func TestPacerHonorsContext(t *testing.T) {
	t.Parallel()

	p := New(Config{Pause: time.Hour})
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, p.Wait(ctx))
}
