package main

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerQueuesOneRerunDuringPass(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 4)
	release := make(chan struct{})

	s := newScheduler(func(ctx context.Context) error {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}, 0, quietLogger())

	done := make(chan struct{})
	go func() {
		s.trigger(context.Background(), "change")
		close(done)
	}()

	<-started
	// both land while the first pass runs and collapse into one rerun
	s.trigger(context.Background(), "change")
	s.trigger(context.Background(), "change")
	release <- struct{}{}

	<-started
	release <- struct{}{}
	<-done

	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, s.inProgress.Load())
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	var calls atomic.Int32
	s := newScheduler(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, 10*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.run(ctx, true)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, int64(calls.Load()), s.passes.Load())
}
