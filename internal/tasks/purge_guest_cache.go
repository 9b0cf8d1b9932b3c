package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mikestefanello/backlite"
)

const (
	// PurgeGuestCacheQueue is the queue name of PurgeGuestCacheTask.
	PurgeGuestCacheQueue = "purge_guest_cache"
	// DefaultGuestRetentionDays applies when a task carries no retention.
	DefaultGuestRetentionDays = 90
)

// GuestCachePurger deletes guest libraries not touched since cutoff.
type GuestCachePurger interface {
	Purge(cutoff time.Time) (int, error)
}

// PurgeGuestCacheTask removes abandoned guest libraries and their reading
// positions from the device cache.
type PurgeGuestCacheTask struct {
	OlderThanDays int `json:"older_than_days"`
}

func (t PurgeGuestCacheTask) Config() backlite.QueueConfig {
	return maintenanceQueue(PurgeGuestCacheQueue)
}

// PurgeGuestCacheProcessor creates a processor function for PurgeGuestCacheTask.
func PurgeGuestCacheProcessor(purger GuestCachePurger, now func() time.Time, logger *log.Logger) backlite.QueueProcessor[PurgeGuestCacheTask] {
	if now == nil {
		now = time.Now
	}
	logger = orDefault(logger)
	return func(ctx context.Context, task PurgeGuestCacheTask) error {
		if purger == nil {
			return errors.New("guest cache not configured")
		}

		days := retentionDays(task.OlderThanDays, DefaultGuestRetentionDays)
		removed, err := purger.Purge(now().AddDate(0, 0, -days))
		if err != nil {
			return fmt.Errorf("purge guest cache: %w", err)
		}

		logger.Info("purged guest cache", "guests", removed, "older_than_days", days)
		return nil
	}
}

// NewPurgeGuestCacheQueue creates a backlite queue for guest cache purges.
func NewPurgeGuestCacheQueue(purger GuestCachePurger, logger *log.Logger) backlite.Queue {
	return backlite.NewQueue(PurgeGuestCacheProcessor(purger, time.Now, logger))
}

// maintenanceQueue is shared by the retention tasks: a few slow retries, and
// only failed payloads are kept around for inspection.
func maintenanceQueue(name string) backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        name,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func retentionDays(days, fallback int) int {
	if days <= 0 {
		return fallback
	}
	return days
}

func orDefault(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}
