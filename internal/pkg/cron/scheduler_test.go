package cron

import (
	"context"
	"errors"
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

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler(quietLogger())
	var calls []string
	s.AddJob(Job{Name: "first", Interval: time.Minute, Fn: func(ctx context.Context) error {
		calls = append(calls, "first")
		return nil
	}})
	s.AddJob(Job{Name: "second", Interval: time.Minute, Fn: func(ctx context.Context) error {
		calls = append(calls, "second")
		return errors.New("boom")
	}})

	err := s.RunOnce(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "second: boom")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestScheduler_JobTimeout(t *testing.T) {
	s := NewScheduler(quietLogger())
	s.AddJob(Job{Name: "slow", Interval: time.Minute, Timeout: 10 * time.Millisecond, Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	err := s.RunOnce(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(quietLogger())
	var runs atomic.Int32
	s.AddJob(Job{Name: "tick", Interval: 5 * time.Millisecond, Fn: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}
