package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleepCapped(t *testing.T) {
	start := time.Now()
	err := SleepCapped(context.Background(), time.Hour, 20*time.Millisecond)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitWithCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := WaitWithCancellation(ctx, [2]int{10, 20})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
