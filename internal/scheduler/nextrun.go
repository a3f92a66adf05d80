package scheduler

import (
	"time"

	"github.com/photobackup/engine/internal/domain"
)

// nextRunTime computes the next time a schedule should fire, given the
// time it (or the process) last considered it. oneTime schedules return
// a nil time and the caller is responsible for disabling them.
func nextRunTime(sched domain.ScheduleType, now time.Time) *time.Time {
	switch sched.Kind {
	case domain.ScheduleOneTime:
		return nil

	case domain.ScheduleInterval:
		secs := sched.IntervalSecs
		if secs <= 0 {
			secs = 1
		}
		next := now.Add(time.Duration(secs) * time.Second)
		return &next

	case domain.ScheduleDaily:
		next := nextDailyOccurrence(now, sched.Hour, sched.Minute)
		return &next

	case domain.ScheduleWeekly:
		next := nextWeeklyOccurrence(now, sched.Weekday, sched.Hour, sched.Minute)
		return &next

	case domain.ScheduleMonthly:
		next := nextMonthlyOccurrence(now, sched.DayOfMonth, sched.Hour, sched.Minute)
		return &next

	default:
		return nil
	}
}

func nextDailyOccurrence(now time.Time, hour, minute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func nextWeeklyOccurrence(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	daysUntil := (int(weekday) - int(candidate.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, daysUntil)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// nextMonthlyOccurrence returns the next dayOfMonth at hour:minute after
// now, clamping dayOfMonth to the target month's actual length (the
// February-clamp case: dayOfMonth=31 on a 28-day February lands on the
// 28th, not March 3rd).
func nextMonthlyOccurrence(now time.Time, dayOfMonth, hour, minute int) time.Time {
	candidate := clampedDate(now.Year(), now.Month(), dayOfMonth, hour, minute, now.Location())
	if !candidate.After(now) {
		year, month := now.Year(), now.Month()+1
		if month > 12 {
			month = 1
			year++
		}
		candidate = clampedDate(year, month, dayOfMonth, hour, minute, now.Location())
	}
	return candidate
}

func clampedDate(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	lastDay := daysInMonth(year, month)
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func daysInMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfThis := firstOfNext.AddDate(0, 0, -1)
	return lastOfThis.Day()
}
