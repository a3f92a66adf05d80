// Package scheduler dispatches due backup jobs, via a 60s ticker over
// the catalog's ScheduledBackupJob rows and, optionally, a
// robfig/cron-driven periodic preset that fans out across every
// destination.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/logger"
	"github.com/photobackup/engine/internal/notification"
	"github.com/photobackup/engine/internal/ports"
	"github.com/photobackup/engine/internal/utils"
)

// tickerInterval is how often the due-job loop polls the catalog.
const tickerInterval = 60 * time.Second

// Preset is a named periodic-backup interval the host configuration may
// select, translated to a cron expression at Start.
type Preset string

const (
	PresetEvery6h    Preset = "6h"
	PresetEvery12h   Preset = "12h"
	PresetDaily      Preset = "daily"
	PresetEvery2Days Preset = "every-2-days"
	PresetWeekly     Preset = "weekly"
)

var presetCron = map[Preset]string{
	PresetEvery6h:    "0 */6 * * *",
	PresetEvery12h:   "0 */12 * * *",
	PresetDaily:      "0 0 * * *",
	PresetEvery2Days: "0 0 */2 * *",
	PresetWeekly:     "0 0 * * 0",
}

// Window is a preferred hour-of-day range [Start,End) a periodic run must
// fall within; it wraps midnight when Start > End.
type Window struct {
	Start, End int // hour of day, 0-23
}

func (w Window) contains(hour int) bool {
	if w.Start == w.End {
		return true
	}
	if w.Start < w.End {
		return hour >= w.Start && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

// PeriodicConfig configures the optional process-wide periodic
// scheduler.
type PeriodicConfig struct {
	Preset           Preset
	Window           Window
	RequiresCharging bool
}

// Scheduler implements ports.Scheduler: a due-job ticker plus an
// optional periodic preset, both gated by ResourceGates before
// dispatch.
type Scheduler struct {
	catalog ports.Catalog
	engine  ports.SyncEngine
	gates   []ports.ResourceGate
	notify  ports.Notification
	logger  *zap.Logger

	periodic *PeriodicConfig
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

var _ ports.Scheduler = (*Scheduler)(nil)

// New builds a Scheduler. periodic may be nil to disable the process-wide
// preset mechanism.
func New(catalog ports.Catalog, engine ports.SyncEngine, gates []ports.ResourceGate, notify ports.Notification, periodic *PeriodicConfig) *Scheduler {
	return &Scheduler{
		catalog:  catalog,
		engine:   engine,
		gates:    gates,
		notify:   notify,
		logger:   logger.Named("scheduler"),
		periodic: periodic,
	}
}

// Start launches the due-job ticker (firing once immediately) and, if
// configured, the periodic cron scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})

	go s.runTickerLoop(runCtx)

	if s.periodic != nil {
		expr, ok := presetCron[s.periodic.Preset]
		if !ok {
			cancel()
			return errs.ErrLaunchAtLoginFail
		}
		if err := utils.ValidateCronSchedule(expr); err != nil {
			cancel()
			return err
		}
		s.cron = cron.New()
		_, err := s.cron.AddFunc(expr, func() { s.runPeriodic(runCtx) })
		if err != nil {
			cancel()
			return err
		}
		s.cron.Start()
	}

	s.running = true
	s.logger.Info("scheduler started")
	return nil
}

// Stop halts both mechanisms and waits for the ticker loop to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.cancel()
	<-s.stopped
	if s.cron != nil {
		cronCtx := s.cron.Stop()
		<-cronCtx.Done()
	}
	s.running = false
	s.logger.Info("scheduler stopped")
	return nil
}

// AddSchedule persists a new or updated schedule; the due-job ticker
// picks it up on its next tick.
func (s *Scheduler) AddSchedule(ctx context.Context, job domain.ScheduledBackupJob) error {
	return s.catalog.UpsertSchedule(ctx, job)
}

// RemoveSchedule disables a schedule rather than deleting its history
// row; callers that truly want it gone use Catalog.DeleteSchedulesByDestination.
func (s *Scheduler) RemoveSchedule(ctx context.Context, id string) error {
	return s.catalog.ToggleSchedule(ctx, id, false)
}

func (s *Scheduler) runTickerLoop(ctx context.Context) {
	defer close(s.stopped)

	s.dispatchDue(ctx)

	ticker := time.NewTicker(tickerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	now := time.Now()
	due, err := s.catalog.ListDueSchedules(ctx, now)
	if err != nil {
		s.logger.Error("failed listing due schedules", zap.Error(err))
		return
	}

	for _, job := range due {
		if !job.IsEnabled {
			continue
		}
		s.runOne(ctx, job, now)
	}
}

func (s *Scheduler) runOne(ctx context.Context, job domain.ScheduledBackupJob, now time.Time) {
	if current, running := s.engine.CurrentJob(); running &&
		(current.Status == domain.JobStatusRunning || current.Status == domain.JobStatusPaused) {
		s.logger.Info("skipping due schedule, a job is already active",
			zap.String("schedule_id", job.ID))
		return
	}

	if !s.allowGates(ctx) {
		s.logger.Info("skipping due schedule, resource gate declined", zap.String("schedule_id", job.ID))
		return
	}

	s.publishScheduled(notifyEventScheduledStarted, job.ID, "")

	syncJob, err := s.engine.Start(ctx, job.DestinationID, job.Filter)

	next := nextRunTime(job.ScheduleType, now)
	if job.ScheduleType.Kind == domain.ScheduleOneTime {
		if toggleErr := s.catalog.ToggleSchedule(ctx, job.ID, false); toggleErr != nil {
			s.logger.Error("failed disabling one-time schedule", zap.String("schedule_id", job.ID), zap.Error(toggleErr))
		}
	}

	if err != nil {
		s.logger.Error("scheduled run failed to start", zap.String("schedule_id", job.ID), zap.Error(err))
		if recErr := s.catalog.RecordScheduleRun(ctx, job.ID, now, next, domain.JobStatusFailed); recErr != nil {
			s.logger.Error("failed recording schedule run", zap.String("schedule_id", job.ID), zap.Error(recErr))
		}
		s.publishScheduled(notifyEventScheduledCompleted, job.ID, "")
		return
	}

	s.awaitTerminalStatus(ctx, job.ID, syncJob.ID, now, next)
}

// awaitTerminalStatus records the schedule's lastRunStatus once syncJob
// actually reaches a terminal state. engine.Start returns as soon as the
// job is dispatched, well before it finishes, so recording its status at
// dispatch time would always observe "running" — this instead waits for
// the matching backup event on the notification bus. With no bus
// configured there is no way to observe completion, so it falls back to
// recording the dispatch-time status.
func (s *Scheduler) awaitTerminalStatus(ctx context.Context, scheduleID, jobID string, lastRun time.Time, nextRun *time.Time) {
	if s.notify == nil {
		if err := s.catalog.RecordScheduleRun(ctx, scheduleID, lastRun, nextRun, domain.JobStatusRunning); err != nil {
			s.logger.Error("failed recording schedule run", zap.String("schedule_id", scheduleID), zap.Error(err))
		}
		s.publishScheduled(notifyEventScheduledCompleted, scheduleID, jobID)
		return
	}

	events, unsubscribe := s.notify.Subscribe(16)
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				backupEvt, ok := evt.(notification.BackupEvent)
				if !ok || backupEvt.JobID != jobID {
					continue
				}
				switch backupEvt.Type {
				case notification.EventBackupCompleted, notification.EventBackupFailed, notification.EventBackupCancelled:
					if err := s.catalog.RecordScheduleRun(context.Background(), scheduleID, lastRun, nextRun, backupEvt.Job.Status); err != nil {
						s.logger.Error("failed recording schedule run", zap.String("schedule_id", scheduleID), zap.Error(err))
					}
					s.publishScheduled(notifyEventScheduledCompleted, scheduleID, jobID)
					return
				}
			}
		}
	}()
}

func (s *Scheduler) runPeriodic(ctx context.Context) {
	if !s.periodic.Window.contains(time.Now().Hour()) {
		return
	}
	if current, running := s.engine.CurrentJob(); running &&
		(current.Status == domain.JobStatusRunning || current.Status == domain.JobStatusPaused) {
		return
	}
	if !s.allowGates(ctx) {
		return
	}

	destinations, err := s.catalog.ListDestinations(ctx)
	if err != nil {
		s.logger.Error("periodic run failed listing destinations", zap.Error(err))
		return
	}
	for _, dest := range destinations {
		if _, err := s.engine.Start(ctx, dest.ID, domain.FilterFullLibrary); err != nil {
			s.logger.Error("periodic run failed to start", zap.String("destination_id", dest.ID), zap.Error(err))
		}
	}
}

func (s *Scheduler) allowGates(ctx context.Context) bool {
	for _, gate := range s.gates {
		ok, err := gate.Allow(ctx)
		if err != nil {
			s.logger.Error("resource gate errored", zap.String("gate", gate.Name()), zap.Error(err))
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}
