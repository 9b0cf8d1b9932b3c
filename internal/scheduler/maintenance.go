package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Sweeper releases client sessions idle for longer than idle.
type Sweeper interface {
	Sweep(ctx context.Context, idle time.Duration) int
}

// JobFunc runs one housekeeping job, directly or by enqueueing a task.
type JobFunc func(ctx context.Context) error

// Jobs are the retention jobs run next to the client sweep. Nil jobs are
// not registered.
type Jobs struct {
	PurgeGuestCache JobFunc
	CleanupAudit    JobFunc
}

// Options configures the maintenance jobs. A job with an empty schedule is
// not registered.
type Options struct {
	SweepSchedule        string
	IdleTimeout          time.Duration
	PurgeSchedule        string
	AuditCleanupSchedule string
	Logger               *log.Logger
}

// Maintenance runs periodic housekeeping for client sessions and the guest cache.
type Maintenance struct {
	sweeper Sweeper
	jobs    Jobs
	opts    Options
	logger  *log.Logger

	cron      *cron.Cron
	mu        sync.RWMutex
	isRunning bool
	sweeping  sync.Mutex
	purging   sync.Mutex
	cleaning  sync.Mutex
}

// NewMaintenance creates a new scheduler instance.
func NewMaintenance(sweeper Sweeper, jobs Jobs, opts Options) *Maintenance {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	return &Maintenance{
		sweeper: sweeper,
		jobs:    jobs,
		opts:    opts,
		logger:  logger.WithPrefix("scheduler"),
		cron:    cron.New(cron.WithParser(newParser())),
	}
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// ValidateSchedule reports whether schedule is a five-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := newParser().Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return nil
}

// Start registers the configured jobs and begins the cron loop.
func (m *Maintenance) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return nil
	}

	registered := 0
	add := func(name, schedule string, run func()) error {
		if schedule == "" {
			return nil
		}
		if err := ValidateSchedule(schedule); err != nil {
			return err
		}
		if _, err := m.cron.AddFunc(schedule, run); err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", name, err)
		}
		registered++
		return nil
	}

	if m.sweeper != nil {
		if err := add("sweep", m.opts.SweepSchedule, func() { m.RunSweep(ctx) }); err != nil {
			return err
		}
	}
	if m.jobs.PurgeGuestCache != nil {
		if err := add("purge", m.opts.PurgeSchedule, func() { m.RunPurge(ctx) }); err != nil {
			return err
		}
	}
	if m.jobs.CleanupAudit != nil {
		if err := add("audit cleanup", m.opts.AuditCleanupSchedule, func() { m.RunAuditCleanup(ctx) }); err != nil {
			return err
		}
	}

	if registered == 0 {
		m.logger.Info("no maintenance jobs configured")
		return nil
	}

	m.cron.Start()
	m.isRunning = true
	m.logger.Info("started",
		"sweep", m.opts.SweepSchedule,
		"purge", m.opts.PurgeSchedule,
		"audit_cleanup", m.opts.AuditCleanupSchedule,
		"idle_timeout", m.opts.IdleTimeout)

	return nil
}

// Stop stops accepting new runs and waits for running jobs to complete.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}

	ctx := m.cron.Stop()
	<-ctx.Done()

	m.isRunning = false
	m.logger.Info("stopped")
}

// IsRunning returns whether the scheduler is active.
func (m *Maintenance) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}

// NextRuns returns the next activation time of every registered job.
func (m *Maintenance) NextRuns() []time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.isRunning {
		return nil
	}
	entries := m.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		next = append(next, entry.Next)
	}
	return next
}

// RunSweep releases idle client sessions. Overlapping runs are skipped.
func (m *Maintenance) RunSweep(ctx context.Context) int {
	if !m.sweeping.TryLock() {
		m.logger.Debug("sweep skipped (already running)")
		return 0
	}
	defer m.sweeping.Unlock()

	released := m.sweeper.Sweep(ctx, m.opts.IdleTimeout)
	if released > 0 {
		m.logger.Info("released idle clients", "count", released)
	}
	return released
}

// RunPurge triggers a guest cache purge. Overlapping runs are skipped.
func (m *Maintenance) RunPurge(ctx context.Context) error {
	if !m.purging.TryLock() {
		m.logger.Debug("purge skipped (already running)")
		return nil
	}
	defer m.purging.Unlock()

	if err := m.jobs.PurgeGuestCache(ctx); err != nil {
		m.logger.Error("guest cache purge failed", "error", err)
		return err
	}
	return nil
}

// RunAuditCleanup triggers removal of expired activity. Overlapping runs are
// skipped.
func (m *Maintenance) RunAuditCleanup(ctx context.Context) error {
	if !m.cleaning.TryLock() {
		m.logger.Debug("audit cleanup skipped (already running)")
		return nil
	}
	defer m.cleaning.Unlock()

	if err := m.jobs.CleanupAudit(ctx); err != nil {
		m.logger.Error("audit cleanup failed", "error", err)
		return err
	}
	return nil
}
