package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
)

// UpsertSchedule inserts or overwrites a ScheduledBackupJob row by id.
func (c *Catalog) UpsertSchedule(ctx context.Context, sched domain.ScheduledBackupJob) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	st := sched.ScheduleType
	var lastRunStatus interface{}
	if sched.LastRunStatus != nil {
		lastRunStatus = *sched.LastRunStatus
	}

	_, err := c.writeDB.ExecContext(ctx, `
		INSERT INTO scheduled_backup_jobs (
			id, destination_id, name, is_enabled, schedule_kind, schedule_at, interval_secs,
			hour, minute, weekday, day_of_month, filter, created_at, last_run_time, next_run_time, last_run_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			destination_id = excluded.destination_id,
			name = excluded.name,
			is_enabled = excluded.is_enabled,
			schedule_kind = excluded.schedule_kind,
			schedule_at = excluded.schedule_at,
			interval_secs = excluded.interval_secs,
			hour = excluded.hour,
			minute = excluded.minute,
			weekday = excluded.weekday,
			day_of_month = excluded.day_of_month,
			filter = excluded.filter,
			last_run_time = excluded.last_run_time,
			next_run_time = excluded.next_run_time,
			last_run_status = excluded.last_run_status
	`, sched.ID, sched.DestinationID, sched.Name, sched.IsEnabled, st.Kind, scheduleAt(st), intervalSecs(st),
		hourOf(st), minuteOf(st), weekdayOf(st), dayOfMonthOf(st), sched.Filter, sched.CreatedAt,
		nullTime(sched.LastRunTime), nullTime(sched.NextRunTime), lastRunStatus)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}

func scheduleAt(st domain.ScheduleType) interface{} {
	if st.Kind == domain.ScheduleOneTime {
		return st.At
	}
	return nil
}

func intervalSecs(st domain.ScheduleType) interface{} {
	if st.Kind == domain.ScheduleInterval {
		return st.IntervalSecs
	}
	return nil
}

func hourOf(st domain.ScheduleType) interface{} {
	switch st.Kind {
	case domain.ScheduleDaily, domain.ScheduleWeekly, domain.ScheduleMonthly:
		return st.Hour
	}
	return nil
}

func minuteOf(st domain.ScheduleType) interface{} {
	switch st.Kind {
	case domain.ScheduleDaily, domain.ScheduleWeekly, domain.ScheduleMonthly:
		return st.Minute
	}
	return nil
}

func weekdayOf(st domain.ScheduleType) interface{} {
	if st.Kind == domain.ScheduleWeekly {
		return int(st.Weekday)
	}
	return nil
}

func dayOfMonthOf(st domain.ScheduleType) interface{} {
	if st.Kind == domain.ScheduleMonthly {
		return st.DayOfMonth
	}
	return nil
}

func scanSchedule(row rowScanner) (domain.ScheduledBackupJob, error) {
	var s domain.ScheduledBackupJob
	var scheduleAt, lastRunTime, nextRunTime sql.NullTime
	var intervalSecs, hour, minute, weekday, dayOfMonth sql.NullInt64
	var lastRunStatus sql.NullString

	err := row.Scan(&s.ID, &s.DestinationID, &s.Name, &s.IsEnabled, &s.ScheduleType.Kind, &scheduleAt,
		&intervalSecs, &hour, &minute, &weekday, &dayOfMonth, &s.Filter, &s.CreatedAt,
		&lastRunTime, &nextRunTime, &lastRunStatus)
	if err != nil {
		return domain.ScheduledBackupJob{}, err
	}

	if scheduleAt.Valid {
		s.ScheduleType.At = scheduleAt.Time
	}
	if intervalSecs.Valid {
		s.ScheduleType.IntervalSecs = int(intervalSecs.Int64)
	}
	if hour.Valid {
		s.ScheduleType.Hour = int(hour.Int64)
	}
	if minute.Valid {
		s.ScheduleType.Minute = int(minute.Int64)
	}
	if weekday.Valid {
		s.ScheduleType.Weekday = time.Weekday(weekday.Int64)
	}
	if dayOfMonth.Valid {
		s.ScheduleType.DayOfMonth = int(dayOfMonth.Int64)
	}
	if lastRunTime.Valid {
		s.LastRunTime = &lastRunTime.Time
	}
	if nextRunTime.Valid {
		s.NextRunTime = &nextRunTime.Time
	}
	if lastRunStatus.Valid {
		status := domain.JobStatus(lastRunStatus.String)
		s.LastRunStatus = &status
	}
	return s, nil
}

const scheduleColumns = `id, destination_id, name, is_enabled, schedule_kind, schedule_at, interval_secs,
	hour, minute, weekday, day_of_month, filter, created_at, last_run_time, next_run_time, last_run_status`

// ListEnabledSchedules returns every enabled ScheduledBackupJob.
func (c *Catalog) ListEnabledSchedules(ctx context.Context) ([]domain.ScheduledBackupJob, error) {
	rows, err := c.readDB.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM scheduled_backup_jobs WHERE is_enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// ListDueSchedules returns every enabled ScheduledBackupJob whose
// next_run_time is at or before now.
func (c *Catalog) ListDueSchedules(ctx context.Context, now time.Time) ([]domain.ScheduledBackupJob, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM scheduled_backup_jobs
		WHERE is_enabled = 1 AND next_run_time IS NOT NULL AND next_run_time <= ?`, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func scanSchedules(rows *sql.Rows) ([]domain.ScheduledBackupJob, error) {
	var out []domain.ScheduledBackupJob
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ToggleSchedule flips a ScheduledBackupJob's enabled flag.
func (c *Catalog) ToggleSchedule(ctx context.Context, id string, enabled bool) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	res, err := c.writeDB.ExecContext(ctx, `UPDATE scheduled_backup_jobs SET is_enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// RecordScheduleRun updates a schedule's run bookkeeping after a
// triggered (or skipped) fire.
func (c *Catalog) RecordScheduleRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time, status domain.JobStatus) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	res, err := c.writeDB.ExecContext(ctx, `
		UPDATE scheduled_backup_jobs SET last_run_time = ?, next_run_time = ?, last_run_status = ? WHERE id = ?
	`, lastRun, nullTime(nextRun), status, id)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteSchedulesByDestination removes every schedule targeting destID.
func (c *Catalog) DeleteSchedulesByDestination(ctx context.Context, destID string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.writeDB.ExecContext(ctx, `DELETE FROM scheduled_backup_jobs WHERE destination_id = ?`, destID)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}
