package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu    sync.Mutex
	idles []time.Duration
	count int
}

func (f *fakeSweeper) Sweep(_ context.Context, idle time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idles = append(f.idles, idle)
	return f.count
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("*/10 * * * *"))
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.Error(t, ValidateSchedule("not a schedule"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestMaintenance_RunSweep(t *testing.T) {
	sweeper := &fakeSweeper{count: 2}
	m := NewMaintenance(sweeper, Jobs{}, Options{IdleTimeout: time.Minute})

	assert.Equal(t, 2, m.RunSweep(context.Background()))
	require.Len(t, sweeper.idles, 1)
	assert.Equal(t, time.Minute, sweeper.idles[0])
}

func TestMaintenance_DefaultIdleTimeout(t *testing.T) {
	sweeper := &fakeSweeper{}
	m := NewMaintenance(sweeper, Jobs{}, Options{})

	m.RunSweep(context.Background())
	require.Len(t, sweeper.idles, 1)
	assert.Equal(t, 30*time.Minute, sweeper.idles[0])
}

func TestMaintenance_RunPurge(t *testing.T) {
	var calls atomic.Int32
	m := NewMaintenance(nil, Jobs{PurgeGuestCache: func(context.Context) error {
		calls.Add(1)
		return nil
	}}, Options{})

	require.NoError(t, m.RunPurge(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestMaintenance_RunPurgeError(t *testing.T) {
	m := NewMaintenance(nil, Jobs{PurgeGuestCache: func(context.Context) error {
		return errors.New("queue closed")
	}}, Options{})

	assert.EqualError(t, m.RunPurge(context.Background()), "queue closed")
}

func TestMaintenance_StartStop(t *testing.T) {
	noop := func(context.Context) error { return nil }
	m := NewMaintenance(&fakeSweeper{}, Jobs{PurgeGuestCache: noop, CleanupAudit: noop}, Options{
		SweepSchedule:        "*/10 * * * *",
		PurgeSchedule:        "0 3 * * *",
		AuditCleanupSchedule: "30 3 * * *",
	})

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Len(t, m.NextRuns(), 3)

	require.NoError(t, m.Start(context.Background()), "second start is a no-op")

	m.Stop()
	assert.False(t, m.IsRunning())
	assert.Nil(t, m.NextRuns())

	m.Stop()
}

func TestMaintenance_StartWithoutJobs(t *testing.T) {
	m := NewMaintenance(&fakeSweeper{}, Jobs{}, Options{})

	require.NoError(t, m.Start(context.Background()))
	assert.False(t, m.IsRunning())
}

func TestMaintenance_StartRejectsBadSchedule(t *testing.T) {
	m := NewMaintenance(&fakeSweeper{}, Jobs{}, Options{SweepSchedule: "every minute"})

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule")
	assert.False(t, m.IsRunning())
}

func TestMaintenance_RunAuditCleanup(t *testing.T) {
	var calls atomic.Int32
	m := NewMaintenance(nil, Jobs{CleanupAudit: func(context.Context) error {
		calls.Add(1)
		return nil
	}}, Options{})

	require.NoError(t, m.RunAuditCleanup(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestMaintenance_JobWithoutScheduleIsSkipped(t *testing.T) {
	noop := func(context.Context) error { return nil }
	m := NewMaintenance(&fakeSweeper{}, Jobs{PurgeGuestCache: noop}, Options{SweepSchedule: "*/5 * * * *"})

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()
	assert.Len(t, m.NextRuns(), 1)
}
