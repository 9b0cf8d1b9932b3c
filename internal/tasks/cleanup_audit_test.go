package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	retentions []time.Duration
	err        error
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retentions = append(f.retentions, retention)
	return 4, f.err
}

func TestCleanupAuditEventsTaskConfig(t *testing.T) {
	cfg := CleanupAuditEventsTask{RetentionDays: 7}.Config()

	assert.Equal(t, CleanupAuditEventsQueue, cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Backoff)
	assert.NotNil(t, cfg.Retention)
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	t.Run("uses task retention", func(t *testing.T) {
		cleaner := &fakeCleaner{}
		process := CleanupAuditEventsProcessor(cleaner, nil)

		require.NoError(t, process(context.Background(), CleanupAuditEventsTask{RetentionDays: 7}))
		assert.Equal(t, []time.Duration{7 * 24 * time.Hour}, cleaner.retentions)
	})

	t.Run("defaults to the audit retention", func(t *testing.T) {
		cleaner := &fakeCleaner{}
		process := CleanupAuditEventsProcessor(cleaner, nil)

		require.NoError(t, process(context.Background(), CleanupAuditEventsTask{}))
		assert.Equal(t, []time.Duration{DefaultAuditRetentionDays * 24 * time.Hour}, cleaner.retentions)
	})

	t.Run("returns cleaner errors", func(t *testing.T) {
		process := CleanupAuditEventsProcessor(&fakeCleaner{err: errors.New("locked")}, nil)
		assert.Error(t, process(context.Background(), CleanupAuditEventsTask{}))
	})

	t.Run("fails without a cleaner", func(t *testing.T) {
		process := CleanupAuditEventsProcessor(nil, nil)
		assert.Error(t, process(context.Background(), CleanupAuditEventsTask{}))
	})
}
